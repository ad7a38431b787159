package protocol

import (
	"fmt"

	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
)

// Announcement advertises the adapter to the broker: its name, the full
// catalogue of labels it supports, and the configuration items it accepts.
type Announcement struct {
	Name          string        `json:"name"`
	Labels        []Label       `json:"labels"`
	Configuration Configuration `json:"configuration"`
}

// Validate checks the announcement structure.
func (a Announcement) Validate() error {
	if a.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidMessage, "Announcement", "Validate",
			"announcement name is empty")
	}
	for _, label := range a.Labels {
		if err := label.Validate(); err != nil {
			return err
		}
	}
	return a.Configuration.Validate()
}

// Kind identifies which variant a Message holds.
type Kind string

const (
	// KindAnnouncement carries the adapter's label catalogue and defaults.
	KindAnnouncement Kind = "announcement"

	// KindConfiguration carries the broker's chosen configuration.
	KindConfiguration Kind = "configuration"

	// KindLabel carries a stimulus, response or stimulus confirmation.
	KindLabel Kind = "label"

	// KindReset asks the adapter to return the SUT to its initial state.
	KindReset Kind = "reset"

	// KindReady signals the adapter is ready for a test run.
	KindReady Kind = "ready"

	// KindError reports a fatal session error.
	KindError Kind = "error"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the Kind is one of the defined constants.
func (k Kind) IsValid() bool {
	switch k {
	case KindAnnouncement, KindConfiguration, KindLabel, KindReset, KindReady, KindError:
		return true
	}
	return false
}

// Message is the unit of exchange between adapter and broker. Exactly one
// variant is populated, selected by Kind.
//
// Message is immutable after construction. Build one with the New*Message
// constructors and inspect it through the accessor methods; the accessors
// report whether the requested variant is the one the message holds.
type Message struct {
	kind          Kind
	announcement  *Announcement
	configuration *Configuration
	label         *Label
	errorText     string
}

// NewAnnouncementMessage wraps an announcement.
func NewAnnouncementMessage(a Announcement) Message {
	return Message{kind: KindAnnouncement, announcement: &a}
}

// NewConfigurationMessage wraps a configuration.
func NewConfigurationMessage(c Configuration) Message {
	return Message{kind: KindConfiguration, configuration: &c}
}

// NewLabelMessage wraps a label.
func NewLabelMessage(l Label) Message {
	return Message{kind: KindLabel, label: &l}
}

// NewResetMessage builds a reset request.
func NewResetMessage() Message {
	return Message{kind: KindReset}
}

// NewReadyMessage builds a ready signal.
func NewReadyMessage() Message {
	return Message{kind: KindReady}
}

// NewErrorMessage builds an error message carrying the given text.
func NewErrorMessage(text string) Message {
	return Message{kind: KindError, errorText: text}
}

// Kind returns which variant the message holds.
func (m Message) Kind() Kind {
	return m.kind
}

// IsZero reports whether the message holds no variant at all.
func (m Message) IsZero() bool {
	return m.kind == ""
}

// Announcement returns the announcement variant.
func (m Message) Announcement() (Announcement, bool) {
	if m.kind != KindAnnouncement || m.announcement == nil {
		return Announcement{}, false
	}
	return *m.announcement, true
}

// Configuration returns the configuration variant.
func (m Message) Configuration() (Configuration, bool) {
	if m.kind != KindConfiguration || m.configuration == nil {
		return Configuration{}, false
	}
	return *m.configuration, true
}

// Label returns the label variant.
func (m Message) Label() (Label, bool) {
	if m.kind != KindLabel || m.label == nil {
		return Label{}, false
	}
	return *m.label, true
}

// ErrorText returns the error variant's text.
func (m Message) ErrorText() (string, bool) {
	if m.kind != KindError {
		return "", false
	}
	return m.errorText, true
}

// String renders the message for logging without dumping payloads.
func (m Message) String() string {
	switch m.kind {
	case KindLabel:
		if m.label != nil {
			return fmt.Sprintf("label %s", m.label.String())
		}
	case KindError:
		return fmt.Sprintf("error %q", m.errorText)
	case "":
		return "empty message"
	}
	return m.kind.String()
}

// Validate checks that the message holds a well formed variant.
func (m Message) Validate() error {
	switch m.kind {
	case KindAnnouncement:
		if m.announcement == nil {
			return errors.WrapInvalid(errors.ErrInvalidMessage, "Message", "Validate",
				"announcement message without announcement")
		}
		return m.announcement.Validate()
	case KindConfiguration:
		if m.configuration == nil {
			return errors.WrapInvalid(errors.ErrInvalidMessage, "Message", "Validate",
				"configuration message without configuration")
		}
		return m.configuration.Validate()
	case KindLabel:
		if m.label == nil {
			return errors.WrapInvalid(errors.ErrInvalidMessage, "Message", "Validate",
				"label message without label")
		}
		return m.label.Validate()
	case KindReset, KindReady:
		return nil
	case KindError:
		if m.errorText == "" {
			return errors.WrapInvalid(errors.ErrInvalidMessage, "Message", "Validate",
				"error message without text")
		}
		return nil
	default:
		return errors.WrapInvalid(errors.ErrInvalidMessage, "Message", "Validate",
			fmt.Sprintf("unknown message kind %q", m.kind))
	}
}
