package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yubzen/tripweaver/internal/planner"
	"github.com/yubzen/tripweaver/internal/providers"
)

type credentialSpec struct {
	Name        string
	DisplayName string
	KeyName     string
	Aliases     []string
}

func credentialSpecs() []credentialSpec {
	return []credentialSpec{
		{Name: "openai", DisplayName: "OpenAI", KeyName: "openai", Aliases: []string{"gpt"}},
		{Name: "groq", DisplayName: "Groq", KeyName: "groq"},
		{Name: "amadeus-id", DisplayName: "Amadeus client ID", KeyName: planner.AmadeusIDKey, Aliases: []string{"amadeus_id"}},
		{Name: "amadeus-secret", DisplayName: "Amadeus client secret", KeyName: planner.AmadeusSecretKey, Aliases: []string{"amadeus_secret"}},
	}
}

func resolveCredential(input string) (credentialSpec, error) {
	name := strings.ToLower(strings.TrimSpace(input))
	for _, cred := range credentialSpecs() {
		if name == cred.Name || name == strings.ToLower(cred.DisplayName) {
			return cred, nil
		}
		for _, alias := range cred.Aliases {
			if name == alias {
				return cred, nil
			}
		}
	}
	return credentialSpec{}, fmt.Errorf("unknown credential %q", input)
}

var hasCredential = providers.HasCredential

func NewAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage API credentials in the OS keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthList(cmd)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List credential status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthList(cmd)
		},
	}

	var setKey string
	setCmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a credential (openai, groq, amadeus-id, amadeus-secret)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := resolveCredential(args[0])
			if err != nil {
				return err
			}

			key := strings.TrimSpace(setKey)
			if key == "" {
				key, err = promptSecret(cmd, fmt.Sprintf("Enter %s: ", cred.DisplayName))
				if err != nil {
					return err
				}
			}
			if key == "" {
				return errors.New("credential cannot be empty")
			}

			if err := providers.StoreCredential(cred.KeyName, key); err != nil {
				return fmt.Errorf("store %s: %w", cred.DisplayName, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", cred.DisplayName)
			return nil
		},
	}
	setCmd.Flags().StringVar(&setKey, "key", "", "Credential value")

	removeCmd := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove a stored credential",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := resolveCredential(args[0])
			if err != nil {
				return err
			}
			if err := providers.DeleteCredential(cred.KeyName); err != nil {
				if errors.Is(err, providers.ErrCredentialNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "No stored %s to remove\n", cred.DisplayName)
					return nil
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", cred.DisplayName)
			return nil
		},
	}

	authCmd.AddCommand(listCmd, setCmd, removeCmd)
	return authCmd
}

func runAuthList(cmd *cobra.Command) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
	fmt.Fprintln(w, "CREDENTIAL\tSTATUS")
	for _, cred := range credentialSpecs() {
		status := "not set"
		if hasCredential(cred.KeyName) {
			status = "set"
		}
		fmt.Fprintf(w, "%s\t%s\n", cred.Name, status)
	}
	return w.Flush()
}

// promptSecret reads a line without echo when stdin is a terminal.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read credential: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return strings.TrimSpace(line), nil
}
