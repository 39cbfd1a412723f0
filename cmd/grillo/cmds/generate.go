package cmds

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/factory"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt...]",
	Short: "Run a single stateless completion and print it to stdout",
	Long:  "Run a single completion without keeping any history. The prompt is taken from the arguments, or from stdin when none are given.",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringArray("attach", nil, "file to attach to the prompt (repeatable)")
	generateCmd.Flags().StringArray("link", nil, "url to attach to the prompt (repeatable)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if prompt == "" || prompt == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return errors.Wrap(err, "could not read prompt from stdin")
		}
		prompt = string(data)
	}
	if strings.TrimSpace(prompt) == "" {
		return errors.New("empty prompt")
	}

	stepSettings, err := loadStepSettings(cmd)
	if err != nil {
		return err
	}

	engine, err := factory.NewStandardEngineFactory().CreateEngine(stepSettings)
	if err != nil {
		return err
	}

	attachments, err := collectAttachments(cmd)
	if err != nil {
		return err
	}

	options := []provider.ChatSessionOption{}
	if systemPrompt := viper.GetString("system"); systemPrompt != "" {
		options = append(options, provider.WithSystemPrompt(systemPrompt))
	}

	session := provider.NewChatSession(engine, options...)
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close chat session")
		}
	}()

	stream, err := session.GenerateStream(cmd.Context(), prompt, attachments...)
	if err != nil {
		return err
	}
	defer stream.Close()

	endedInNewline := false
	for {
		delta, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		fmt.Print(delta)
		endedInNewline = strings.HasSuffix(delta, "\n")
	}
	if !endedInNewline {
		fmt.Println()
	}

	return nil
}
