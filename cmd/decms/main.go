package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/decms-project/decms/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "decms",
	Short: "Digital Evidence Chain-of-custody Management System CLI",
	Long: `decms is the command-line interface for the evidence custody server.

It lets investigators list cases, inspect evidence items, hand off custody,
and verify the integrity of custody chains from the terminal.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".decms"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.decms/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "custody server URL (default http://localhost:8080)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(evidenceCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}

// tokenPath is where the session token from `decms login` is stored.
func tokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".decms", "token"), nil
}

// newClient builds an SDK client with the saved session token, if any.
func newClient() (*client.Client, error) {
	opts := []client.Option{}
	if p, err := tokenPath(); err == nil {
		if data, err := os.ReadFile(p); err == nil {
			opts = append(opts, client.WithToken(strings.TrimSpace(string(data))))
		}
	}
	return client.New(serverURL, opts...)
}

// ── login ────────────────────────────────────────────────────────────────────

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and store a session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginEmail == "" {
			return fmt.Errorf("--email is required")
		}
		fmt.Print("Password: ")
		pw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		c, err := client.New(serverURL)
		if err != nil {
			return err
		}
		token, user, err := c.Login(context.Background(), loginEmail, string(pw))
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		p, err := tokenPath()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err := os.WriteFile(p, []byte(token), 0o600); err != nil {
			return fmt.Errorf("save token: %w", err)
		}

		fmt.Printf("✓ Logged in as %s %s (%s)\n", user.FirstName, user.LastName, user.Email)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
}

// ── cases ────────────────────────────────────────────────────────────────────

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		out, err := c.ListCases(context.Background())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNUMBER\tSTATUS\tTITLE")
		for _, cs := range out {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", cs.ID, cs.CaseNumber, cs.Status, cs.Title)
		}
		return w.Flush()
	},
}

// ── evidence ─────────────────────────────────────────────────────────────────

var evidenceCaseID int64

var evidenceCmd = &cobra.Command{
	Use:   "evidence [evidence-id]",
	Short: "Show one evidence item and its chain, or list a case's items",
	Long: `With an evidence ID, prints the item's head state and full custody chain.
With --case, lists all items filed under that case instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		if len(args) == 0 {
			if evidenceCaseID == 0 {
				return fmt.Errorf("provide an evidence ID or --case")
			}
			items, err := c.CaseEvidence(ctx, evidenceCaseID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tCUSTODIAN\tNAME")
			for _, it := range items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
					it.ID, it.EvidenceType, it.Status, it.CurrentCustodianID, it.ItemName)
			}
			return w.Flush()
		}

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid evidence ID %q", args[0])
		}
		item, err := c.GetEvidence(ctx, id)
		if err != nil {
			return err
		}
		chain, err := c.Chain(ctx, id)
		if err != nil {
			return err
		}

		fmt.Printf("Item:         %s\n", item.ItemName)
		fmt.Printf("Case:         %d\n", item.CaseID)
		fmt.Printf("Type:         %s\n", item.EvidenceType)
		fmt.Printf("Status:       %s\n", item.Status)
		fmt.Printf("Custodian:    %d\n", item.CurrentCustodianID)
		fmt.Printf("Initial hash: %s\n\n", item.InitialHash)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tFROM\tTO\tWHEN\tLINK HASH\tNOTES")
		for i, t := range chain {
			fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s…\t%s\n",
				i+1, t.FromUserID, t.ToUserID,
				t.Timestamp.Local().Format(time.DateTime),
				t.LinkHash[:12], t.Notes)
		}
		return w.Flush()
	},
}

func init() {
	evidenceCmd.Flags().Int64Var(&evidenceCaseID, "case", 0, "List evidence for this case ID")
}

// ── transfer ─────────────────────────────────────────────────────────────────

var (
	transferTo    int64
	transferNotes string
)

var transferCmd = &cobra.Command{
	Use:   "transfer <evidence-id>",
	Short: "Hand custody of an evidence item to another user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid evidence ID %q", args[0])
		}
		if transferTo == 0 {
			return fmt.Errorf("--to is required")
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		rec, err := c.TransferEvidence(context.Background(), id, transferTo, transferNotes)
		if err != nil {
			return fmt.Errorf("transfer: %w", err)
		}

		fmt.Printf("✓ Custody transferred\n\n")
		fmt.Printf("  Transfer:  %d\n", rec.ID)
		fmt.Printf("  From:      user %d\n", rec.FromUserID)
		fmt.Printf("  To:        user %d\n", rec.ToUserID)
		fmt.Printf("  Link hash: %s\n", rec.LinkHash)
		return nil
	},
}

func init() {
	transferCmd.Flags().Int64Var(&transferTo, "to", 0, "Receiving user ID")
	transferCmd.Flags().StringVar(&transferNotes, "notes", "", "Hand-off notes for the record")
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify <evidence-id>",
	Short: "Verify the integrity of an item's custody chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid evidence ID %q", args[0])
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.VerifyChain(context.Background(), id)
		if err != nil {
			return err
		}

		if res.Valid {
			fmt.Println("✓ Chain intact: every link hash and custodian hand-off checks out")
			return nil
		}
		fmt.Printf("✗ Chain BROKEN at transfer %d: %s\n", res.BrokenAt, res.Reason)
		os.Exit(1)
		return nil
	},
}

// ── report ───────────────────────────────────────────────────────────────────

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report <evidence-id>",
	Short: "Print the assembled chain-of-custody report for an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid evidence ID %q", args[0])
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		rep, err := c.GetCustodyReport(context.Background(), id)
		if err != nil {
			return err
		}

		if reportJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}

		fmt.Printf("CHAIN OF CUSTODY REPORT — generated %s\n\n", rep.GeneratedAt.Local().Format(time.DateTime))
		fmt.Printf("Item:         %s (ID %d)\n", rep.Item.ItemName, rep.Item.ID)
		fmt.Printf("Type:         %s\n", rep.Item.EvidenceType)
		fmt.Printf("Status:       %s\n", rep.Item.Status)
		fmt.Printf("Initial hash: %s\n", rep.Item.InitialHash)
		if rep.Verify.Valid {
			fmt.Printf("Integrity:    VERIFIED (%d links)\n\n", len(rep.Transfers))
		} else {
			fmt.Printf("Integrity:    BROKEN at transfer %d — %s\n\n", rep.Verify.BrokenAt, rep.Verify.Reason)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tFROM\tTO\tWHEN\tNOTES")
		for i, t := range rep.Transfers {
			fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n",
				i+1, t.FromUserID, t.ToUserID,
				t.Timestamp.Local().Format(time.DateTime), t.Notes)
		}
		return w.Flush()
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Emit the report as JSON")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the decms CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("decms %s\n", version)
	},
}
