package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"skel-runtime/internal/logging"
	"skel-runtime/internal/skel"
	"skel-runtime/internal/skeleton"
)

func main() {
	dump := flag.Bool("dump", false, "Dump the whole decoded graph")
	scale := flag.Float64("scale", 1, "Decode scale")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: skelinspect [-dump] [-scale s] file.skel...")
		os.Exit(2)
	}

	failed := false
	for _, arg := range flag.Args() {
		var skipped []error
		data, err := skel.Parse(arg,
			skel.WithScale(float32(*scale)),
			skel.WithSkipped(func(err error) { skipped = append(skipped, err) }),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Parse error %s: %v\n", arg, err)
			failed = true
			continue
		}
		fmt.Printf("\n=== %s (bones=%d slots=%d skins=%d events=%d animations=%d) ===\n",
			arg, len(data.Bones), len(data.Slots), len(data.AllSkins()), len(data.Events), len(data.Animations))
		fmt.Printf("hash=%s version=%s bounds=(%.1f, %.1f %.1fx%.1f)\n",
			data.Hash, data.Version, data.X, data.Y, data.Width, data.Height)

		printBones(data)
		printSlots(data)
		printSkins(data)
		printAnimations(data)

		if len(skipped) > 0 {
			fmt.Printf("--- SKIPPED (%d) ---\n", len(skipped))
			for _, err := range skipped {
				fmt.Printf("  %v\n", err)
			}
		}
		if *dump {
			fmt.Println("--- DUMP ---")
			logging.Dump(os.Stdout, data)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func printBones(data *skeleton.Data) {
	fmt.Println("--- BONES ---")
	inst := data.Instantiate()
	for i, b := range data.Bones {
		parent := "-"
		if b.Parent >= 0 {
			parent = data.Bones[b.Parent].Name
		}
		w := inst.Bones[i].WorldPosition()
		fmt.Printf("  [%d] %-20s parent=%-12s local=(%.1f, %.1f) rot=%.1f world=(%.1f, %.1f) %s\n",
			i, b.Name, parent, b.X, b.Y, b.Rotation, w[0], w[1], b.Mode)
	}
}

func printSlots(data *skeleton.Data) {
	fmt.Println("--- SLOTS ---")
	for i, s := range data.Slots {
		fmt.Printf("  [%d] %-20s bone=%-12s attachment=%q blend=%s\n",
			i, s.Name, data.Bones[s.Bone].Name, s.AttachmentName, s.Blend)
	}
}

func printSkins(data *skeleton.Data) {
	fmt.Println("--- SKINS ---")
	for _, skin := range data.AllSkins() {
		fmt.Printf("  %s: %d attachments\n", skin.Name, skin.Len())
		for _, e := range skin.Entries() {
			fmt.Printf("    %-16s %-20s %s\n", data.Slots[e.Slot].Name, e.Name, e.Attachment.Kind())
		}
	}
}

func printAnimations(data *skeleton.Data) {
	fmt.Println("--- ANIMATIONS ---")
	for _, a := range data.Animations {
		kinds := make(map[string]int)
		for _, tl := range a.Timelines {
			kinds[tl.Kind().String()]++
		}
		names := make([]string, 0, len(kinds))
		for k := range kinds {
			names = append(names, k)
		}
		sort.Strings(names)
		fmt.Printf("  %-20s %.3fs", a.Name, a.Duration)
		for _, k := range names {
			fmt.Printf(" %s=%d", k, kinds[k])
		}
		fmt.Println()
	}
}
