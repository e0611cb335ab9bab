package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/chatline/internal"
	"github.com/iksnae/chatline/internal/backend"
	"github.com/spf13/cobra"
)

var (
	fileDescription string
	filePreview     int
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Upload and search documents the backend parses",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded files",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := newClient().ListFiles(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list files: %w", err)
		}
		displayFiles(cmd.OutOrStdout(), files, time.Now())
		return nil
	},
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a pdf, docx, csv or txt file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(args[0])), ".")
		if !supportedFileType(ext) {
			return fmt.Errorf("unsupported file type %q (supported: %s)", ext, strings.Join(backend.SupportedFileTypes, ", "))
		}

		var file *internal.ParsedFile
		err := internal.ShowProgress(cmd.Context(), fmt.Sprintf("Uploading %s", filepath.Base(args[0])), func() error {
			var err error
			file, err = newClient().UploadFile(cmd.Context(), args[0], fileDescription)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", args[0], err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as file %d (%s, %s characters parsed)\n",
			file.OriginalName, file.ID, humanize.Bytes(uint64(file.FileSize)), humanize.Comma(int64(len([]rune(file.ParsedContent)))))
		return nil
	},
}

var filesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a file's parsed content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseFileID(args[0])
		if err != nil {
			return err
		}
		file, err := newClient().GetFile(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to load file %d: %w", id, err)
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, sessionHeaderStyle.Render(fmt.Sprintf("📄 %s", file.OriginalName)))
		_, _ = fmt.Fprintln(out, sessionMetaStyle.Render(fmt.Sprintf("Type: %s • Size: %s", file.FileType, humanize.Bytes(uint64(file.FileSize)))))
		content := file.ParsedContent
		if filePreview > 0 {
			content = truncateRunes(content, filePreview)
		}
		_, _ = fmt.Fprintln(out, content)
		return nil
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an uploaded file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseFileID(args[0])
		if err != nil {
			return err
		}
		if err := newClient().DeleteFile(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete file %d: %w", id, err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted file %d\n", id)
		return nil
	},
}

var filesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find files whose content matches a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := newClient().SearchFiles(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("failed to search files: %w", err)
		}
		displayFiles(cmd.OutOrStdout(), files, time.Now())
		return nil
	},
}

func displayFiles(w io.Writer, files []internal.ParsedFile, now time.Time) {
	if len(files) == 0 {
		_, _ = fmt.Fprintln(w, headerStyle.Render("📄 No files found"))
		return
	}
	_, _ = fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("📄 %d file(s)", len(files))))
	_, _ = fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, titleStyle.Render("ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Type")+"\t"+titleStyle.Render("Size")+"\t"+titleStyle.Render("Uploaded")+"\t")
	for _, f := range files {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(strconv.Itoa(f.ID)), f.OriginalName, f.FileType,
			humanize.Bytes(uint64(f.FileSize)), dateStyle.Render(relativeTime(f.CreatedAt, now)))
	}
	_ = tw.Flush()
}

func supportedFileType(ext string) bool {
	for _, t := range backend.SupportedFileTypes {
		if t == ext {
			return true
		}
	}
	return false
}

func parseFileID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid file id %q", s)
	}
	return id, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesListCmd, filesUploadCmd, filesGetCmd, filesDeleteCmd, filesSearchCmd)
	filesUploadCmd.Flags().StringVarP(&fileDescription, "description", "d", "", "Description stored with the file")
	filesGetCmd.Flags().IntVar(&filePreview, "preview", 0, "Show only the first N characters")
}
