package cmds

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tiktoken-go/tokenizer"

	"github.com/go-go-golems/grillo/pkg/conversation"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens <conversation-file>",
	Short: "Count tokens over the active thread of a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokens,
}

func init() {
	tokensCmd.Flags().String("model", "gpt-4", "model whose tokenizer to use")
	tokensCmd.Flags().String("codec", "", "tokenizer encoding, overrides --model (e.g. cl100k_base)")

	rootCmd.AddCommand(tokensCmd)
}

func runTokens(cmd *cobra.Command, args []string) error {
	tree, err := conversation.LoadFromFile(args[0])
	if err != nil {
		return err
	}

	model, _ := cmd.Flags().GetString("model")
	encoding, _ := cmd.Flags().GetString("codec")

	var codec tokenizer.Codec
	if encoding != "" {
		codec, err = tokenizer.Get(tokenizer.Encoding(encoding))
	} else {
		codec, err = tokenizer.ForModel(tokenizer.Model(model))
	}
	if err != nil {
		return errors.Wrap(err, "could not create tokenizer codec")
	}

	total := 0
	for _, msg := range tree.ActiveChain() {
		ids, _, err := codec.Encode(msg.TextOrEmpty())
		if err != nil {
			return errors.Wrapf(err, "could not encode message %s", msg.ID)
		}
		fmt.Printf("[%s] %d tokens\n", msg.Origin, len(ids))
		total += len(ids)
	}
	fmt.Printf("total: %d tokens\n", total)

	return nil
}
