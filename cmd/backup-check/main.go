// Command backup-check validates an exported kitchen-cleaning backup file
// against the deployment configuration and prints a short summary, so an admin
// can verify a backup before importing it.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"dutyroster/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("backup-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var path string
	fs.StringVar(&path, "file", "", "path to an exported backup json file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if path == "" {
		fmt.Fprintln(stderr, "backup-check: -file is required")
		return 2
	}
	if err := run(path, stdout); err != nil {
		fmt.Fprintf(stderr, "Backup validation failed: %v\n", err)
		return 1
	}
	return 0
}

func run(path string, stdout io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	cfg := domain.DefaultConfig()

	doc, err := domain.DecodeExportDocument(data, cfg)
	if err != nil {
		return err
	}
	if doc.ExportDate.IsZero() {
		return fmt.Errorf("backup has no export date")
	}
	for i, room := range doc.RoomOrder {
		if !cfg.KnownRoom(room) {
			return fmt.Errorf("roomOrder[%d]: room %d is not in the deployment room order", i, room)
		}
	}

	snap := doc.State
	legacy := 0
	evidenced := 0
	manual := 0
	for _, rec := range snap.CleaningHistory {
		switch {
		case rec.Image != "":
			legacy++
		case rec.EvidenceKey != "":
			evidenced++
		case rec.Manual:
			manual++
		}
	}

	fmt.Fprintf(stdout, "Backup valid: %s\n", doc.ExportFilename())
	fmt.Fprintf(stdout, "  exported:        %s\n", doc.ExportDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(stdout, "  rooms in order:  %d\n", len(doc.RoomOrder))
	fmt.Fprintf(stdout, "  skipped rooms:   %d\n", len(snap.SkippedRooms))
	fmt.Fprintf(stdout, "  history records: %d (evidenced %d, manual %d, legacy inline %d)\n",
		len(snap.CleaningHistory), evidenced, manual, legacy)
	if snap.LastCleaningDate != nil {
		fmt.Fprintf(stdout, "  last cleaning:   %s\n", snap.LastCleaningDate.Format("2006-01-02"))
	}
	if legacy > 0 {
		fmt.Fprintln(stdout, "  note: legacy inline images will be migrated to the evidence store on import")
	}
	return nil
}
