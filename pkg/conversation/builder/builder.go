package builder

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/provider"
)

// SessionBuilder assembles a seeded chat session. System prompt, seed
// messages and the initial prompt are go templates with sprig functions,
// rendered against the variable map at Build time.
type SessionBuilder struct {
	engine       provider.Engine
	systemPrompt string
	messages     []*conversation.Message
	prompt       string
	variables    map[string]interface{}
	attachments  []conversation.Attachment

	sessionOptions []provider.ChatSessionOption
}

// NewSessionBuilder creates a builder for a chat session backed by the
// given engine.
func NewSessionBuilder(engine provider.Engine) *SessionBuilder {
	return &SessionBuilder{
		engine:    engine,
		variables: make(map[string]interface{}),
	}
}

func (b *SessionBuilder) WithSystemPrompt(systemPrompt string) *SessionBuilder {
	b.systemPrompt = systemPrompt
	return b
}

// WithMessages adds seed messages that become the conversation history
// before the first exchange. Their text is rendered as a template.
func (b *SessionBuilder) WithMessages(messages ...*conversation.Message) *SessionBuilder {
	b.messages = append(b.messages, messages...)
	return b
}

// WithPrompt sets an initial user prompt appended after the seed messages.
func (b *SessionBuilder) WithPrompt(prompt string) *SessionBuilder {
	b.prompt = prompt
	return b
}

func (b *SessionBuilder) WithVariables(variables map[string]interface{}) *SessionBuilder {
	if b.variables == nil {
		b.variables = make(map[string]interface{})
	}
	for k, v := range variables {
		b.variables[k] = v
	}
	return b
}

// WithAttachments attaches files or links to the initial prompt message.
func (b *SessionBuilder) WithAttachments(attachments ...conversation.Attachment) *SessionBuilder {
	b.attachments = append(b.attachments, attachments...)
	return b
}

// WithSessionOptions passes options through to the chat session, sinks and
// event metadata in particular.
func (b *SessionBuilder) WithSessionOptions(options ...provider.ChatSessionOption) *SessionBuilder {
	b.sessionOptions = append(b.sessionOptions, options...)
	return b
}

// Build renders all templates and creates the seeded chat session.
func (b *SessionBuilder) Build() (*provider.ChatSession, error) {
	if b.engine == nil {
		return nil, errors.New("no engine provided")
	}

	options := []provider.ChatSessionOption{}

	if b.systemPrompt != "" {
		rendered, err := renderTemplate("system-prompt", b.systemPrompt, b.variables)
		if err != nil {
			return nil, err
		}
		options = append(options, provider.WithSystemPrompt(rendered))
	}

	seed := []*conversation.Message{}
	for _, msg := range b.messages {
		rendered, err := renderTemplate("message", msg.TextOrEmpty(), b.variables)
		if err != nil {
			return nil, err
		}
		seed = append(seed, conversation.NewMessage(msg.Origin, rendered,
			conversation.WithAttachments(msg.Attachments...),
			conversation.WithTime(msg.Time),
		))
	}

	if b.prompt != "" {
		rendered, err := renderTemplate("prompt", b.prompt, b.variables)
		if err != nil {
			return nil, err
		}
		seed = append(seed, conversation.NewMessage(conversation.RoleUser, rendered,
			conversation.WithAttachments(b.attachments...)))
	}

	if len(seed) > 0 {
		tree := conversation.NewTree()
		if err := tree.AppendThread(conversation.NullNode, seed...); err != nil {
			return nil, errors.Wrap(err, "failed to seed conversation")
		}
		options = append(options, provider.WithTree(tree))
	}

	options = append(options, b.sessionOptions...)

	return provider.NewChatSession(b.engine, options...), nil
}

func renderTemplate(name string, text string, variables map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse %s template", name)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, variables); err != nil {
		return "", errors.Wrapf(err, "failed to execute %s template", name)
	}
	return buf.String(), nil
}
