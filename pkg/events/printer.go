package events

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"gopkg.in/yaml.v3"
)

// NewPrinterFunc returns a watermill handler that renders a stream as
// plain text: the name once, then every fragment as it arrives, a closing
// newline on the final event. Start and interrupt events print nothing.
func NewPrinterFunc(name string, w io.Writer) func(msg *message.Message) error {
	isFirst := true

	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		switch p_ := e.(type) {
		case *EventError:
			_, err = fmt.Fprintf(w, "\nerror: %s\n", p_.ErrorString)
			if err != nil {
				return err
			}

		case *EventPartialCompletion:
			if isFirst && name != "" {
				isFirst = false
				_, err = fmt.Fprintf(w, "\n%s: \n", name)
				if err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(w, "%s", p_.Delta)
			if err != nil {
				return err
			}

		case *EventFinal:
			if !strings.HasSuffix(p_.Text, "\n") {
				_, err = fmt.Fprintf(w, "\n")
				if err != nil {
					return err
				}
			}

		case *EventPartialCompletionStart,
			*EventInterrupt:
		}

		return nil
	}
}

type PrinterFormat string

const (
	FormatText PrinterFormat = "text"
	FormatJSON PrinterFormat = "json"
	FormatYAML PrinterFormat = "yaml"
)

type PrinterOptions struct {
	// Format determines the output format (text, json, yaml)
	Format PrinterFormat
	// Name is the prefix to use for text output
	Name string
	// IncludeMetadata controls whether to include Event.Metadata() in the
	// structured output
	IncludeMetadata bool
	// Full prints the metadata on every event, not just the final one
	Full bool
}

type structuredOutput struct {
	Type     EventType   `json:"type,omitempty" yaml:"type,omitempty"`
	Content  interface{} `json:"content,omitempty" yaml:"content,omitempty"`
	Metadata interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewStructuredPrinter returns a watermill handler that renders events as
// text, one-line JSON documents or YAML documents, for consumption by
// humans and pipelines respectively.
func NewStructuredPrinter(w io.Writer, options PrinterOptions) func(msg *message.Message) error {
	isFirst := true

	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		switch options.Format {
		case FormatText:
			return handleTextFormat(w, e, options, &isFirst)
		case FormatJSON:
			return handleStructuredFormat(w, e, options, json.Marshal)
		case FormatYAML:
			return handleStructuredFormat(w, e, options, yaml.Marshal)
		default:
			return fmt.Errorf("unknown format: %s", options.Format)
		}
	}
}

func handleTextFormat(w io.Writer, e Event, options PrinterOptions, isFirst *bool) error {
	switch p := e.(type) {
	case *EventError:
		return fmt.Errorf("error event: %s", p.ErrorString)
	case *EventPartialCompletion:
		if *isFirst && options.Name != "" {
			*isFirst = false
			if _, err := fmt.Fprintf(w, "\n%s: \n", options.Name); err != nil {
				return err
			}
		}
		_, err := w.Write([]byte(p.Delta))
		return err
	case *EventFinal:
		if !strings.HasSuffix(p.Text, "\n") {
			if _, err := w.Write([]byte("\n")); err != nil {
				return err
			}
		}
		if options.IncludeMetadata {
			metaBytes, err := yaml.Marshal(e.Metadata())
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "\nMetadata:\n%s\n", metaBytes); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

func handleStructuredFormat(w io.Writer, e Event, options PrinterOptions, marshal func(interface{}) ([]byte, error)) error {
	output := structuredOutput{
		Type: e.Type(),
	}

	switch p := e.(type) {
	case *EventPartialCompletion:
		output.Content = p.Delta
	case *EventFinal:
		output.Content = p.Text
	case *EventInterrupt:
		output.Content = p.Text
	case *EventError:
		output.Content = p.ErrorString
	}

	if options.Full {
		output.Metadata = e.Metadata()
	} else if options.IncludeMetadata {
		switch e.Type() {
		case EventTypeStart, EventTypeFinal:
			output.Metadata = e.Metadata()
		default:
		}
	}

	bytes, err := marshal(output)
	if err != nil {
		return err
	}

	_, err = w.Write(append(bytes, '\n'))
	return err
}
