package cmds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/grillo/pkg/conversation"
)

var printCmd = &cobra.Command{
	Use:   "print <conversation-file>",
	Short: "Print the active thread of a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := conversation.LoadFromFile(args[0])
		if err != nil {
			return err
		}

		for _, msg := range tree.ActiveChain() {
			fmt.Printf("\n[%s]: %s\n", msg.Origin, msg.TextOrEmpty())
			for _, attachment := range msg.Attachments {
				fmt.Printf("  (%s)\n", attachment.String())
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(printCmd)
}
