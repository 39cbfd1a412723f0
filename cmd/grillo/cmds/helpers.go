package cmds

import (
	"os"
	"path/filepath"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/events"
	"github.com/go-go-golems/grillo/pkg/provider/settings"
	"github.com/go-go-golems/grillo/pkg/provider/types"
)

var apiTypes = []types.ApiType{
	types.ApiTypeOpenAI,
	types.ApiTypeAnyScale,
	types.ApiTypeFireworks,
	types.ApiTypeClaude,
	types.ApiTypeGemini,
	types.ApiTypeOllama,
}

// loadStepSettings builds the step settings from the --settings yaml file
// (when given) and layers the viper configuration on top: flags beat
// environment variables beat the config file beat the yaml file.
func loadStepSettings(cmd *cobra.Command) (*settings.StepSettings, error) {
	stepSettings := settings.NewStepSettings()

	if settingsFile := viper.GetString("settings"); settingsFile != "" {
		f, err := os.Open(settingsFile)
		if err != nil {
			return nil, errors.Wrapf(err, "could not open settings file %s", settingsFile)
		}
		stepSettings, err = settings.NewStepSettingsFromYAML(f)
		_ = f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse settings file %s", settingsFile)
		}
	}

	if apiType := viper.GetString("api-type"); apiType != "" {
		t := types.ApiType(apiType)
		stepSettings.Chat.ApiType = &t
	}
	if model := viper.GetString("model"); model != "" {
		stepSettings.Chat.Engine = &model
	}
	if systemPrompt := viper.GetString("system"); systemPrompt != "" {
		stepSettings.Chat.SystemPrompt = &systemPrompt
	}

	// temperature and max-response-tokens are numeric, a viper lookup can't
	// tell 0 from unset, so only apply them when the flag was given
	flags := cmd.Flags()
	if flags.Changed("temperature") {
		temperature, _ := flags.GetFloat64("temperature")
		stepSettings.Chat.Temperature = &temperature
	}
	if flags.Changed("max-response-tokens") {
		maxResponseTokens, _ := flags.GetInt("max-response-tokens")
		stepSettings.Chat.MaxResponseTokens = &maxResponseTokens
	}

	for _, apiType := range apiTypes {
		if key := viper.GetString(string(apiType) + "-api-key"); key != "" {
			stepSettings.API.APIKeys[string(apiType)+"-api-key"] = key
		}
		if baseURL := viper.GetString(string(apiType) + "-base-url"); baseURL != "" {
			stepSettings.API.BaseUrls[string(apiType)+"-base-url"] = baseURL
		}
	}

	return stepSettings, nil
}

// collectAttachments loads the --attach files and parses the --link URLs.
func collectAttachments(cmd *cobra.Command) ([]conversation.Attachment, error) {
	attachments := []conversation.Attachment{}

	paths, _ := cmd.Flags().GetStringArray("attach")
	for _, path := range paths {
		attachment, err := conversation.LoadFileAttachment(path)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}

	links, _ := cmd.Flags().GetStringArray("link")
	for _, rawURL := range links {
		link, err := conversation.ParseLinkAttachment(filepath.Base(rawURL), rawURL)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, link)
	}

	return attachments, nil
}

// makePrinter builds the event handler that renders chat events to stdout,
// honoring --output and --with-metadata. The assistant name prefix is only
// printed when stdout is a terminal.
func makePrinter(cmd *cobra.Command) (func(msg *message.Message) error, error) {
	output, _ := cmd.Flags().GetString("output")
	withMetadata, _ := cmd.Flags().GetBool("with-metadata")

	name := "assistant"
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		name = ""
	}

	switch events.PrinterFormat(output) {
	case events.FormatText:
		return events.NewPrinterFunc(name, os.Stdout), nil
	case events.FormatJSON, events.FormatYAML:
		return events.NewStructuredPrinter(os.Stdout, events.PrinterOptions{
			Format:          events.PrinterFormat(output),
			Name:            name,
			IncludeMetadata: withMetadata,
		}), nil
	default:
		return nil, errors.Errorf("unknown output format %s", output)
	}
}
