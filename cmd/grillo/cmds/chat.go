package cmds

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	input "github.com/tcnksm/go-input"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/conversation/builder"
	"github.com/go-go-golems/grillo/pkg/events"
	"github.com/go-go-golems/grillo/pkg/provider"
	"github.com/go-go-golems/grillo/pkg/provider/factory"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a streaming backend, keeping the conversation history",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().String("load", "", "resume a conversation from a json or yaml file")
	chatCmd.Flags().String("save", "", "write the conversation to a json or yaml file on exit")
	chatCmd.Flags().StringArray("attach", nil, "file to attach to the first message (repeatable)")
	chatCmd.Flags().StringArray("link", nil, "url to attach to the first message (repeatable)")
	chatCmd.Flags().StringP("output", "o", "text", "output format (text, json, yaml)")
	chatCmd.Flags().Bool("with-metadata", false, "include event metadata in structured output")

	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	printer, err := makePrinter(cmd)
	if err != nil {
		return err
	}

	router, err := events.NewEventRouter()
	if err != nil {
		return err
	}
	router.AddHandler("chat", "chat", printer)

	sessionBuilder := builder.NewSessionBuilder(engine).
		WithSessionOptions(provider.WithSink(events.NewWatermillSink(router.Publisher, "chat")))
	if systemPrompt := viper.GetString("system"); systemPrompt != "" {
		sessionBuilder = sessionBuilder.WithSystemPrompt(systemPrompt)
	}

	session, err := sessionBuilder.Build()
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close chat session")
		}
	}()

	if loadFile, _ := cmd.Flags().GetString("load"); loadFile != "" {
		tree, err := conversation.LoadFromFile(loadFile)
		if err != nil {
			return err
		}
		if err := session.ReplaceHistory(tree.ActiveChain()); err != nil {
			return err
		}
		printHistory(tree.ActiveChain())
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eg, groupCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer cancel()
		return router.Run(groupCtx)
	})
	eg.Go(func() error {
		defer func() {
			if err := router.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close event router")
			}
		}()
		<-router.Running()
		return chatLoop(groupCtx, session, attachments)
	})

	loopErr := eg.Wait()

	if saveFile, _ := cmd.Flags().GetString("save"); saveFile != "" {
		if err := session.Tree().SaveToFile(saveFile); err != nil {
			return err
		}
		log.Info().Str("file", saveFile).Msg("conversation saved")
	}

	return loopErr
}

// chatLoop reads prompts until EOF or an exit command. The attachments only
// ride along on the first message.
func chatLoop(ctx context.Context, session *provider.ChatSession, attachments []conversation.Attachment) error {
	ui := &input.UI{
		Writer: os.Stdout,
		Reader: os.Stdin,
	}

	for {
		prompt, err := ui.Ask("\nUser", &input.Options{
			Required:  true,
			HideOrder: true,
		})
		if err != nil {
			// go-input reports EOF and interrupts as errors
			return nil
		}
		if prompt == "exit" || prompt == "quit" {
			return nil
		}

		stream, err := session.SendMessageStream(ctx, prompt, attachments...)
		if err != nil {
			return err
		}
		attachments = nil

		if err := drainStream(ctx, stream); err != nil {
			return err
		}
	}
}

// drainStream pulls the stream to completion. The deltas themselves are
// rendered by the event handler, so they are discarded here. Backend errors
// were already printed as error events and do not end the chat loop.
func drainStream(ctx context.Context, stream *provider.TextStream) error {
	defer stream.Close()

	for {
		_, err := stream.Recv()
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debug().Err(err).Msg("stream ended with error")
		return nil
	}
}

func printHistory(history conversation.Conversation) {
	for _, msg := range history {
		fmt.Printf("\n[%s]: %s\n", msg.Origin, msg.TextOrEmpty())
	}
}
