package skel

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"skel-runtime/internal/binreader"
	"skel-runtime/internal/logging"
	"skel-runtime/internal/skeleton"
)

// Option configures a decode.
type Option func(*options)

type options struct {
	scale    float32
	name     string
	progress func(Section)
	skipped  func(error)
	logger   *log.Logger
}

// WithScale multiplies positions, lengths, sizes and translations.
func WithScale(s float32) Option { return func(o *options) { o.scale = s } }

// WithName sets Data.Name.
func WithName(name string) Option { return func(o *options) { o.name = name } }

// WithProgress is called as each section starts.
func WithProgress(fn func(Section)) Option { return func(o *options) { o.progress = fn } }

// WithSkipped is called for every unsupported item the decoder steps over.
func WithSkipped(fn func(error)) Option { return func(o *options) { o.skipped = fn } }

// WithLogger replaces the package logger.
func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

// Parse reads and decodes a binary skeleton file. The model is named after
// the file unless WithName is given.
func Parse(path string, opts ...Option) (*skeleton.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "skel: read %s", path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Decode(raw, append([]Option{WithName(name)}, opts...)...)
}

// Decode builds a skeleton from its binary form. It has no side effects
// beyond the optional callbacks and is safe to run on any goroutine. On
// error no partial data is returned.
func Decode(buf []byte, opts ...Option) (*skeleton.Data, error) {
	o := options{scale: 1}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}

	d := &decoder{
		r:    binreader.New(buf),
		opts: o,
		data: &skeleton.Data{Name: o.name},
	}
	steps := []struct {
		section Section
		fn      func() error
	}{
		{SectionHeader, d.header},
		{SectionStrings, d.strings},
		{SectionBones, d.bones},
		{SectionSlots, d.slots},
		{SectionConstraints, d.constraints},
		{SectionSkins, d.skins},
		{SectionEvents, d.events},
		{SectionAnimations, d.animations},
	}
	for _, s := range steps {
		d.enter(s.section)
		if err := s.fn(); err != nil {
			return nil, err
		}
		if err := d.check(); err != nil {
			return nil, err
		}
	}

	d.enter(SectionDone)
	d.data.Index()
	if err := d.data.Validate(); err != nil {
		return nil, d.fail(ErrUnresolvedReference, "%v", err)
	}
	if rest := d.r.Remaining(); rest > 0 {
		o.logger.Debug("trailing bytes after animations", "model", o.name, "bytes", rest)
	}
	return d.data, nil
}

type decoder struct {
	r            *binreader.Reader
	opts         options
	data         *skeleton.Data
	section      Section
	nonessential bool

	ikCount        int
	transformCount int
	pathCount      int
	skinCount      int
	eventAudio     []bool
}

func (d *decoder) enter(s Section) {
	d.section = s
	if d.opts.progress != nil {
		d.opts.progress(s)
	}
}

func (d *decoder) fail(kind error, format string, args ...interface{}) error {
	return &DecodeError{
		Kind:    kind,
		Section: d.section,
		Offset:  d.r.Offset(),
		Err:     errors.Errorf(format, args...),
	}
}

// check converts a sticky reader error into a DecodeError.
func (d *decoder) check() error {
	err := d.r.Err()
	if err == nil {
		return nil
	}
	kind := ErrMalformedBuffer
	if errors.Is(err, binreader.ErrRefOutOfRange) {
		kind = ErrUnresolvedReference
	}
	return &DecodeError{Kind: kind, Section: d.section, Offset: d.r.Offset(), Err: err}
}

// skip reports an unsupported item whose bytes have been consumed.
func (d *decoder) skip(what string, keyvals ...interface{}) {
	err := &DecodeError{
		Kind:    ErrUnknownVariant,
		Section: d.section,
		Offset:  d.r.Offset(),
		Err:     errors.Errorf("skipped %s", what),
	}
	d.opts.logger.Warn("skipping unsupported item", append([]interface{}{"model", d.data.Name, "item", what}, keyvals...)...)
	if d.opts.skipped != nil {
		d.opts.skipped(err)
	}
}

// count reads an element count. Every element takes at least one byte, so a
// count beyond the remaining input is malformed.
func (d *decoder) count() int {
	n := d.r.Count()
	if n > d.r.Remaining() {
		d.r.Fail(errors.Errorf("count %d exceeds remaining %d bytes", n, d.r.Remaining()))
		return 0
	}
	return n
}

// index reads a varint and checks it against a table of n entries.
func (d *decoder) index(n int, what string) (int, error) {
	i := int(d.r.Varint(true))
	if err := d.check(); err != nil {
		return 0, err
	}
	if i < 0 || i >= n {
		return 0, d.fail(ErrUnresolvedReference, "%s index %d of %d", what, i, n)
	}
	return i, nil
}

func (d *decoder) header() error {
	r := d.r
	d.data.Hash, _ = r.String()
	d.data.Version, _ = r.String()
	d.data.X = r.Float()
	d.data.Y = r.Float()
	d.data.Width = r.Float()
	d.data.Height = r.Float()
	d.nonessential = r.Bool()
	if d.nonessential {
		d.data.FPS = r.Float()
		d.data.ImagesPath, _ = r.String()
		d.data.AudioPath, _ = r.String()
	}
	return nil
}

func (d *decoder) strings() error {
	n := d.count()
	table := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, _ := d.r.String()
		if d.r.Err() != nil {
			break
		}
		table = append(table, s)
	}
	d.r.SetStrings(table)
	return nil
}

func (d *decoder) bones() error {
	r := d.r
	scale := d.opts.scale
	n := d.count()
	d.data.Bones = make([]*skeleton.BoneData, 0, n)
	for i := 0; i < n; i++ {
		name, _ := r.String()
		b := &skeleton.BoneData{Index: i, Name: name, Parent: -1}
		if i > 0 {
			p, err := d.index(i, "parent bone")
			if err != nil {
				return err
			}
			b.Parent = p
		}
		b.Rotation = r.Float()
		b.X = r.Float() * scale
		b.Y = r.Float() * scale
		b.ScaleX = r.Float()
		b.ScaleY = r.Float()
		b.ShearX = r.Float()
		b.ShearY = r.Float()
		b.Length = r.Float() * scale
		if b.Length < 0 {
			b.Length = 0
		}
		mode := r.Varint(true)
		if err := d.check(); err != nil {
			return err
		}
		if mode < 0 || mode > int32(skeleton.ModeNoScaleOrReflection) {
			return d.fail(ErrMalformedBuffer, "bone %q transform mode %d", name, mode)
		}
		b.Mode = skeleton.TransformMode(mode)
		b.SkinRequired = r.Bool()
		if d.nonessential {
			b.Color = r.Color()
		}
		if err := d.check(); err != nil {
			return err
		}
		d.data.Bones = append(d.data.Bones, b)
	}
	return nil
}

func rgb888(v int32) mgl32.Vec4 {
	return mgl32.Vec4{
		float32(v>>16&0xFF) / 255,
		float32(v>>8&0xFF) / 255,
		float32(v&0xFF) / 255,
		1,
	}
}

func (d *decoder) slots() error {
	r := d.r
	n := d.count()
	d.data.Slots = make([]*skeleton.SlotData, 0, n)
	for i := 0; i < n; i++ {
		name, _ := r.String()
		bone, err := d.index(len(d.data.Bones), "slot bone")
		if err != nil {
			return err
		}
		s := &skeleton.SlotData{Index: i, Name: name, Bone: bone}
		s.Color = r.Color()
		if dark := r.Int(); dark != -1 {
			s.DarkColor = rgb888(dark)
			s.HasDarkColor = true
		}
		s.AttachmentName, _ = r.StringRef()
		blend := r.Varint(true)
		if err := d.check(); err != nil {
			return err
		}
		if blend < 0 || blend > int32(skeleton.BlendScreen) {
			return d.fail(ErrMalformedBuffer, "slot %q blend mode %d", name, blend)
		}
		s.Blend = skeleton.BlendMode(blend)
		d.data.Slots = append(d.data.Slots, s)
	}
	return nil
}

// constraints walks IK, transform and path constraint definitions. They are
// not supported at runtime; only their counts are kept to validate skin and
// timeline references.
func (d *decoder) constraints() error {
	r := d.r
	bones := len(d.data.Bones)

	constraintBones := func() error {
		n := d.count()
		for i := 0; i < n; i++ {
			if _, err := d.index(bones, "constrained bone"); err != nil {
				return err
			}
		}
		return nil
	}
	head := func() error {
		r.String()
		r.Varint(true)
		r.Bool()
		return constraintBones()
	}

	d.ikCount = d.count()
	for i := 0; i < d.ikCount; i++ {
		if err := head(); err != nil {
			return err
		}
		if _, err := d.index(bones, "ik target"); err != nil {
			return err
		}
		r.Skip(4 + 4 + 1 + 3) // mix, softness, bend direction, compress/stretch/uniform
	}
	if d.ikCount > 0 {
		d.skip("ik constraints", "count", d.ikCount)
	}

	d.transformCount = d.count()
	for i := 0; i < d.transformCount; i++ {
		if err := head(); err != nil {
			return err
		}
		if _, err := d.index(bones, "transform target"); err != nil {
			return err
		}
		r.Skip(2 + 12*4) // local, relative, 6 offsets, 6 mixes
	}
	if d.transformCount > 0 {
		d.skip("transform constraints", "count", d.transformCount)
	}

	d.pathCount = d.count()
	for i := 0; i < d.pathCount; i++ {
		if err := head(); err != nil {
			return err
		}
		if _, err := d.index(len(d.data.Slots), "path target slot"); err != nil {
			return err
		}
		r.Varint(true) // position mode
		r.Varint(true) // spacing mode
		r.Varint(true) // rotate mode
		r.Skip(6 * 4)
	}
	if d.pathCount > 0 {
		d.skip("path constraints", "count", d.pathCount)
	}
	return nil
}

func (d *decoder) events() error {
	r := d.r
	n := d.count()
	d.data.Events = make([]*skeleton.EventData, 0, n)
	d.eventAudio = make([]bool, 0, n)
	for i := 0; i < n; i++ {
		name, ok := r.StringRef()
		if err := d.check(); err != nil {
			return err
		}
		if !ok {
			return d.fail(ErrMalformedBuffer, "event %d has no name", i)
		}
		e := &skeleton.EventData{Name: name, Volume: 1}
		e.Int = r.Varint(false)
		e.Float = r.Float()
		e.String, _ = r.String()
		var audio bool
		e.AudioPath, audio = r.String()
		if audio {
			e.Volume = r.Float()
			e.Balance = r.Float()
		}
		d.data.Events = append(d.data.Events, e)
		d.eventAudio = append(d.eventAudio, audio)
	}
	return nil
}
