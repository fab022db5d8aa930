package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bft-labs/folio/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/folio/internal/adapters/http"
	"github.com/bft-labs/folio/internal/cliconfig"
	"github.com/bft-labs/folio/internal/ports"
	"github.com/bft-labs/folio/internal/upload"
	pkglog "github.com/bft-labs/folio/pkg/log"
)

func (c *cli) objectStore(logger ports.Logger) ports.ObjectStore {
	if c.cfg.Backend == cliconfig.BackendHosted {
		return httpAdapter.NewClient(c.cfg.SupabaseURL, c.cfg.SupabaseKey, &http.Client{Timeout: c.cfg.HTTPTimeout}, logger)
	}
	return fs.NewObjectDir(c.cfg.ObjectsDir(), c.cfg.PublicURL+"/uploads")
}

// detectType guesses a file's content type from its extension, then its
// first bytes.
func detectType(path string, head []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return http.DetectContentType(head)
}

func newUploadCmd(c *cli) *cobra.Command {
	var kindName, contentType string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a file and print its public URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			kind, ok := upload.ParseKind(kindName)
			if !ok {
				return fmt.Errorf("unknown kind %q (image, voice, pdf or file)", kindName)
			}

			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			if contentType == "" {
				head := make([]byte, 512)
				n, _ := file.Read(head)
				contentType = detectType(path, head[:n])
				if _, err := file.Seek(0, 0); err != nil {
					return err
				}
			}

			logger := pkglog.NewZerologAdapterWithLogger(c.log)
			u := upload.New(c.objectStore(logger), logger, upload.WithBucket(c.cfg.Bucket))
			link, err := u.Upload(cmd.Context(), kind, upload.File{
				Name:        filepath.Base(path),
				ContentType: contentType,
				Body:        file,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", string(upload.KindFile), "upload kind: image, voice, pdf or file")
	cmd.Flags().StringVar(&contentType, "type", "", "content type (default: detected from the file)")
	return cmd
}
