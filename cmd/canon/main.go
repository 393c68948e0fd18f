// Command canon is a CLI for working with a content-addressed store
// directly, without the HTTP daemon: put/get blobs and compute digests.
// Grounded on cmd/cli/virtual_machine.go's cobra command tree and env/
// logging bootstrap (vmInit), narrowed to a single persistent store flag
// instead of a VM mode switch.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"synnergy-canon/canon"
	"synnergy-canon/canon/store"
	"synnergy-canon/canon/store/diskstore"
	"synnergy-canon/pkg/utils"
)

var log = logrus.StandardLogger()

var storeBackend string
var storeDiskPath string

func openStore() (canon.Store, error) {
	switch storeBackend {
	case "disk":
		return diskstore.New(storeDiskPath)
	case "mem", "":
		return store.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", storeBackend)
	}
}

var rootCmd = &cobra.Command{
	Use:   "canon",
	Short: "Inspect and populate a canon content-addressed store",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		lvl := utils.EnvOrDefault("CANON_LOG_LEVEL", "warn")
		lv, err := logrus.ParseLevel(lvl)
		if err != nil {
			return err
		}
		log.SetLevel(lv)
		return nil
	},
}

var putCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "Store a file's raw bytes and print its digest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		id, err := s.PutRaw(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id.String())
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch the raw bytes stored under a digest and print them as hex",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := hex.DecodeString(args[0])
		if err != nil || len(raw) != canon.IDLen {
			return fmt.Errorf("invalid id %q", args[0])
		}
		var id canon.Id
		copy(id[:], raw)

		s, err := openStore()
		if err != nil {
			return err
		}
		buf := make([]byte, 1<<20)
		n, err := s.Fetch(id, buf)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(buf[:n]))
		return nil
	},
}

var hashCmd = &cobra.Command{
	Use:   "hash <file>",
	Short: "Print a file's digest without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), canon.IdOfRaw(data).String())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeBackend, "backend", "mem", "store backend: mem|disk")
	rootCmd.PersistentFlags().StringVar(&storeDiskPath, "disk-path", "./canon-data", "root directory for the disk backend")
	rootCmd.AddCommand(putCmd, getCmd, hashCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
