package skel

import (
	"fmt"

	"github.com/pkg/errors"

	"skel-runtime/internal/skeleton"
)

var (
	// ErrMalformedBuffer covers truncation, invalid strings and type bytes
	// whose layout is unknown. Always fatal.
	ErrMalformedBuffer = errors.New("malformed buffer")
	// ErrUnknownVariant marks a recognised but unsupported item that was
	// skipped. It is reported, not returned.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrUnresolvedReference is an index or string reference outside its
	// table. Always fatal.
	ErrUnresolvedReference = skeleton.ErrUnresolvedReference
)

// Section identifies a part of the file, in reading order.
type Section int32

const (
	SectionHeader Section = iota
	SectionStrings
	SectionBones
	SectionSlots
	SectionConstraints
	SectionSkins
	SectionEvents
	SectionAnimations
	SectionDone
)

var sectionNames = [...]string{"header", "strings", "bones", "slots", "constraints", "skins", "events", "animations", "done"}

func (s Section) String() string {
	if s >= 0 && int(s) < len(sectionNames) {
		return sectionNames[s]
	}
	return fmt.Sprintf("Section(%d)", s)
}

// DecodeError locates a decode failure. errors.Is matches both Kind and the
// underlying cause.
type DecodeError struct {
	Kind    error
	Section Section
	Offset  int
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("skel: %v in %s at offset %d: %v", e.Kind, e.Section, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
