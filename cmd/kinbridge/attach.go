package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"kinbridge/internal/api"
	"kinbridge/internal/config"
	"kinbridge/internal/formdata"
)

func newAttachCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		name        string
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "attach <record-id> <path>",
		Short: "Upload a file and attach it to an inbound record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, path := strings.TrimSpace(args[0]), args[1]
			if recordID == "" {
				return fmt.Errorf("record id is required")
			}

			part, err := readPart(path, name, contentType)
			if err != nil {
				return err
			}

			client := api.NewClient(cfg.APIURL)
			resp, err := client.AttachInvoice(cmd.Context(), recordID, part)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(resp)
			}
			return writePlain("attached %s to record %s (%s, %s): %s\n", part.Filename, resp.RecordID, resp.Mode, resp.Backend, resp.FileKey)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "file name to store (defaults to the base name of path)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (defaults to a guess from the extension or content)")
	return cmd
}

func readPart(path, name, contentType string) (formdata.Part, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return formdata.Part{}, fmt.Errorf("read %s: %w", path, err)
	}
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(path)
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return formdata.Part{Filename: name, ContentType: contentType, Data: data}, nil
}
