package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const envTemplate = `# linedoc environment: %[1]s
ENVIRONMENT=%[1]s
LOG_LEVEL=info
LOG_FORMAT=text

# --- LINE webhook receiver ---
PORT=8080
LINE_CHANNEL_ACCESS_TOKEN=
LINE_CHANNEL_SECRET=
LINE_CHANNEL_ID=
WEBHOOK_URL=
LINE_VERIFY_SIGNATURE=false
DOWNLOAD_DIR=~/Desktop/LINE_Downloads
MAX_DOWNLOAD_BYTES=314572800
LINE_API_RATE_LIMIT=0
JOURNAL_PATH=

# Named push targets
LINE_USER_ID_CURRENT=
LINE_GROUP_ID_CURRENT=
LINE_USER_ID_SAM=
LINE_GROUP_ID_TEMP=
LINE_GROUP_ID_PATROL=

# --- Document AI pipeline ---
GCP_PROJECT=
DOCAI_LOCATION=us
DOCAI_PROCESSOR_ID=
BUCKET_NAME=
PROCESSED_BUCKET_NAME=
EXPORT_XLSX=false
PROCESSOR_CONCURRENCY=2
PROCESS_TIMEOUT=5m
`

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [environment]",
		Short: "Write a .env.<environment> template (default: local)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := "local"
			if len(args) == 1 {
				env = strings.TrimSpace(args[0])
			}
			if env == "" || strings.ContainsAny(env, `/\`) {
				return fmt.Errorf("invalid environment name %q", env)
			}
			path, err := writeEnvTemplate(env, force)
			if err != nil {
				return err
			}
			logger.Info("environment template written", "file", path)
			fmt.Printf("Edit %s, then run 'linedoc doctor --env-file %s'.\n", path, path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func writeEnvTemplate(env string, force bool) (string, error) {
	path := ".env." + env
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err != nil {
		return "", err
	}
	if _, err := fmt.Fprintf(f, envTemplate, env); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
