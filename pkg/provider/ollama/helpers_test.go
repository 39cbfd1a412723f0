package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/settings"
	"github.com/go-go-golems/grillo/pkg/provider/types"
)

func TestMakeMessagesMapsRolesAndSystem(t *testing.T) {
	req := &provider.Request{
		System: "be brief",
		Messages: conversation.Conversation{
			conversation.NewMessage(conversation.RoleUser, "hello"),
			conversation.NewMessage(conversation.RoleAssistant, "hi"),
		},
	}

	messages, err := makeMessages(req)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "be brief", messages[0].Content)
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "hello", messages[1].Content)
	assert.Equal(t, "assistant", messages[2].Role)
	assert.Equal(t, "hi", messages[2].Content)
}

func TestMakeMessagesAttachesImages(t *testing.T) {
	req := &provider.Request{
		Messages: conversation.Conversation{
			conversation.NewMessage(conversation.RoleUser, "describe this",
				conversation.WithAttachments(
					conversation.NewFileAttachment("chart.png", "image/png", []byte{1, 2, 3}),
				),
			),
		},
	}

	messages, err := makeMessages(req)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Images, 1)
	assert.Equal(t, []byte{1, 2, 3}, []byte(messages[0].Images[0]))
}

func TestMakeMessagesRejectsFilesAndLinks(t *testing.T) {
	link, err := conversation.ParseLinkAttachment("docs", "https://example.com/doc")
	require.NoError(t, err)

	for _, attachment := range []conversation.Attachment{
		conversation.NewFileAttachment("report.pdf", "application/pdf", []byte{1}),
		link,
	} {
		req := &provider.Request{
			Messages: conversation.Conversation{
				conversation.NewMessage(conversation.RoleUser, "read this", conversation.WithAttachments(attachment)),
			},
		}

		_, err := makeMessages(req)
		var unsupported *provider.UnsupportedAttachmentError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "ollama", unsupported.Backend)
	}
}

func TestMakeOptionsMapsSettings(t *testing.T) {
	stepSettings := settings.NewStepSettings()
	temperature := 0.7
	maxTokens := 64
	numCtx := 4096
	topK := 20
	mirostatEta := 0.1
	stepSettings.Chat.Temperature = &temperature
	stepSettings.Chat.MaxResponseTokens = &maxTokens
	stepSettings.Chat.Stop = []string{"DONE"}
	stepSettings.Ollama.NumCtx = &numCtx
	stepSettings.Ollama.TopK = &topK
	stepSettings.Ollama.MirostatEta = &mirostatEta

	options := makeOptions(stepSettings)
	assert.Equal(t, 0.7, options["temperature"])
	assert.Equal(t, 64, options["num_predict"])
	assert.Equal(t, []string{"DONE"}, options["stop"])
	assert.Equal(t, 4096, options["num_ctx"])
	assert.Equal(t, 20, options["top_k"])
	assert.Equal(t, 0.1, options["mirostat_eta"])
	assert.NotContains(t, options, "top_p")
}

func TestMakeOptionsVendorNumPredictWins(t *testing.T) {
	stepSettings := settings.NewStepSettings()
	maxTokens := 64
	numPredict := 128
	stepSettings.Chat.MaxResponseTokens = &maxTokens
	stepSettings.Ollama.NumPredict = &numPredict

	options := makeOptions(stepSettings)
	assert.Equal(t, 128, options["num_predict"])
}

func TestMakeOptionsEmptyWhenUnset(t *testing.T) {
	assert.Empty(t, makeOptions(settings.NewStepSettings()))
}

func TestMakeClientParsesBaseURL(t *testing.T) {
	stepSettings := settings.NewStepSettings()
	stepSettings.API.BaseUrls[string(types.ApiTypeOllama)+"-base-url"] = "http://ollama.local:11434"

	client, err := makeClient(stepSettings)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestMakeClientRejectsInvalidBaseURL(t *testing.T) {
	stepSettings := settings.NewStepSettings()
	stepSettings.API.BaseUrls[string(types.ApiTypeOllama)+"-base-url"] = "://bad"

	_, err := makeClient(stepSettings)
	require.Error(t, err)
}

func TestNewOllamaEngineRequiresSettings(t *testing.T) {
	_, err := NewOllamaEngine(nil)
	require.Error(t, err)
}
