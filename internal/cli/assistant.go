package cli

import (
	"fmt"
	"strings"

	"github.com/ashureev/taskflow/internal/assistant"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	return newReplyCmd(assistant.ChatRules, "ask <message>", "Show the chat assistant's reply to a message",
		`  taskflowctl ask "how should I set priorities?"`)
}

func newSayCmd() *cobra.Command {
	return newReplyCmd(assistant.VoiceRules, "say <command>", "Show the voice assistant's reply to a spoken command",
		`  taskflowctl say "create a new task"`)
}

func newReplyCmd(rules *assistant.RuleSet, use, short, example string) *cobra.Command {
	var showRule bool
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Example: example,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			if strings.TrimSpace(input) == "" {
				return assistant.ErrEmptyInput
			}
			out := cmd.OutOrStdout()
			if showRule {
				fmt.Fprintf(out, "[%s]\n", rules.Match(input))
			}
			fmt.Fprintln(out, rules.Respond(input))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showRule, "rule", false, "print the name of the matched rule first")
	return cmd
}
