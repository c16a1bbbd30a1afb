package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/postwatch/postwatch/errors"
	"github.com/postwatch/postwatch/ledger"
	"github.com/postwatch/postwatch/logger"
)

// KeysCmd represents the keys command
var KeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage gateway API keys",
	Long: `Manage the API keys that authenticate gateway requests.

Roles:
  admin            Full access including rollback and migration
  scraper-writer   Submit observations
  full-reader      Read aggregated views and full observation timelines
  frontend-reader  Read aggregated views only

Examples:
  postwatch keys create --name ci-scraper --role scraper-writer
  postwatch keys list
  postwatch keys revoke --id 1f4c...`,
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key",
	Long:  "Create an API key. The plaintext key is printed exactly once; only its hash is stored.",
	RunE:  runKeysCreate,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	RunE:  runKeysList,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke an API key",
	RunE:  runKeysRevoke,
}

var (
	keysNameFlag string
	keysRoleFlag string
	keysIDFlag   string
	keysDbFlag   string
)

func init() {
	KeysCmd.AddCommand(keysCreateCmd)
	KeysCmd.AddCommand(keysListCmd)
	KeysCmd.AddCommand(keysRevokeCmd)

	KeysCmd.PersistentFlags().StringVar(&keysDbFlag, "db-path", "", "Ledger database path (default from config)")

	keysCreateCmd.Flags().StringVar(&keysNameFlag, "name", "", "Human-readable key name")
	keysCreateCmd.Flags().StringVar(&keysRoleFlag, "role", "", "Key role: admin, scraper-writer, full-reader, frontend-reader")
	keysCreateCmd.MarkFlagRequired("name")
	keysCreateCmd.MarkFlagRequired("role")

	keysRevokeCmd.Flags().StringVar(&keysIDFlag, "id", "", "Key id to revoke")
	keysRevokeCmd.MarkFlagRequired("id")
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	role := ledger.Role(keysRoleFlag)
	if !role.Valid() {
		return errors.Newf("invalid role %q", keysRoleFlag)
	}

	database, _, err := openDatabase(keysDbFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	store := ledger.NewStore(database, logger.Logger)
	key, plaintext, err := store.CreateAPIKey(cmd.Context(), keysNameFlag, role)
	if err != nil {
		return err
	}

	fmt.Printf("Created key %s (%s, %s)\n\n", key.ID, key.Name, key.Role)
	fmt.Printf("  %s\n\n", plaintext)
	fmt.Println("Store this key now; it cannot be recovered.")
	return nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase(keysDbFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	store := ledger.NewStore(database, logger.Logger)
	keys, err := store.ListAPIKeys(cmd.Context())
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No API keys.")
		return nil
	}

	fmt.Printf("%-36s %-20s %-16s %-20s %s\n", "ID", "NAME", "ROLE", "CREATED", "STATUS")
	for _, key := range keys {
		status := "active"
		if key.RevokedAt != nil {
			status = "revoked " + key.RevokedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-36s %-20s %-16s %-20s %s\n",
			key.ID, key.Name, key.Role, key.CreatedAt.Format("2006-01-02 15:04"), status)
	}
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase(keysDbFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	store := ledger.NewStore(database, logger.Logger)
	if err := store.RevokeAPIKey(cmd.Context(), keysIDFlag); err != nil {
		return err
	}
	fmt.Printf("Revoked key %s\n", keysIDFlag)
	return nil
}
