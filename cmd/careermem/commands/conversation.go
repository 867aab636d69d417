package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hireflow/careermem-go/pkg/conversation"
	"github.com/hireflow/careermem-go/pkg/core"
)

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Drive coaching conversations",
}

var conversationCreateCmd = &cobra.Command{
	Use:   "create <user-id>",
	Short: "Start a conversation",
	Long: `Start a conversation and print its id.

Example:
  careermem conversation create user_001 --title "Offer negotiation" --tag salary`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		category, _ := cmd.Flags().GetString("category")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		resumeID, _ := cmd.Flags().GetString("resume")
		jobIDs, _ := cmd.Flags().GetStringSlice("job")
		noMemory, _ := cmd.Flags().GetBool("no-memory")

		return withService(func(client *core.Client, svc *conversation.Service) error {
			opts := []conversation.CreateOption{
				conversation.WithTitle(title),
				conversation.WithCategory(category),
				conversation.WithTags(tags...),
			}
			if resumeID != "" || len(jobIDs) > 0 {
				opts = append(opts, conversation.WithContext(resumeID, jobIDs...))
			}
			if noMemory {
				opts = append(opts, conversation.WithSettings(conversation.Settings{MemoryEnabled: false, AutoSummarize: true}))
			}
			conv, err := svc.Create(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}
			fmt.Println(conv.ID)
			return nil
		})
	},
}

var conversationSendCmd = &cobra.Command{
	Use:   "send <conversation-id> <message>",
	Short: "Send a message and print the coach's reply",
	Long: `Append a user message and ask the coach for a reply personalized with
the user's memories. With --no-reply the message is only stored.

Example:
  careermem conversation send 3f6c... "I have a system design interview next week"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		noReply, _ := cmd.Flags().GetBool("no-reply")
		text := strings.Join(args[1:], " ")

		return withService(func(client *core.Client, svc *conversation.Service) error {
			if noReply {
				msg, err := svc.AddMessage(cmd.Context(), args[0], conversation.MessageInput{
					Type:    conversation.MessageUser,
					Content: text,
				})
				if err != nil {
					return err
				}
				fmt.Println(msg.ID)
				return nil
			}
			answer, err := svc.Reply(cmd.Context(), args[0], text)
			if err != nil {
				return err
			}
			fmt.Println(answer.Content)
			return nil
		})
	},
}

var conversationShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		return withService(func(client *core.Client, svc *conversation.Service) error {
			conv, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(conv)
			}
			printConversation(conv)
			return nil
		})
	},
}

var conversationSummarizeCmd = &cobra.Command{
	Use:   "summarize <conversation-id>",
	Short: "Summarize the latest messages now",
	Long: `Summarize the conversation's recent window, store the new summary
version and feed the memories it surfaces back into the user's store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(client *core.Client, svc *conversation.Service) error {
			summary, err := svc.Summarize(cmd.Context(), args[0])
			if summary != nil {
				if perr := printJSON(summary); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

func init() {
	conversationCreateCmd.Flags().String("title", "", "conversation title")
	conversationCreateCmd.Flags().String("category", "", "conversation category")
	conversationCreateCmd.Flags().StringSlice("tag", nil, "tag (repeatable)")
	conversationCreateCmd.Flags().String("resume", "", "resume id the conversation is about")
	conversationCreateCmd.Flags().StringSlice("job", nil, "job id the conversation is about (repeatable)")
	conversationCreateCmd.Flags().Bool("no-memory", false, "do not extract memories from this conversation")

	conversationSendCmd.Flags().Bool("no-reply", false, "store the message without asking for a reply")

	conversationShowCmd.Flags().Bool("json", false, "print the raw conversation as JSON")

	conversationCmd.AddCommand(conversationCreateCmd, conversationSendCmd, conversationShowCmd, conversationSummarizeCmd)
	rootCmd.AddCommand(conversationCmd)
}

// withService opens a client and a conversation service for fn. Closing the
// client waits for the extraction and summary tasks fn started.
func withService(fn func(client *core.Client, svc *conversation.Service) error) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client, conversation.NewService(client))
}

func printConversation(conv *conversation.Conversation) {
	fmt.Fprintf(os.Stdout, "%s  %s  (%d messages)\n", conv.ID, conv.Title, conv.Analytics.MessageCount)
	if conv.Summary != nil {
		fmt.Fprintf(os.Stdout, "Summary v%d: %s\n", conv.Summary.Version, conv.Summary.Content)
	}
	fmt.Fprintln(os.Stdout)
	for _, m := range conv.Messages {
		fmt.Fprintf(os.Stdout, "[%s] %s: %s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.Type, m.Content)
	}
}
