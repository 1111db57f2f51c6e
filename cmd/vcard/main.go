// Command vcard renders the configured contact card to a .vcf file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	_ "github.com/joho/godotenv/autoload"

	"cardapi/internal/config"
	"cardapi/internal/download"
	"cardapi/internal/jsonlog"
	"cardapi/internal/photo"
	"cardapi/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	cfg := config.Load()

	fs := flag.NewFlagSet("vcard", flag.ContinueOnError)
	fs.SetOutput(errOut)
	outDir := fs.String("out", ".", "directory the card is written to")
	photoRef := fs.String("photo", cfg.Contact.PhotoRef, "photo reference: local path or http(s) URL")
	policy := fs.String("photo-policy", cfg.Export.PhotoPolicy, "what to do when the photo fails: omit or fail")
	filename := fs.String("filename", cfg.Export.Filename, "output filename (default derived from the contact name)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *policy != config.PhotoPolicyOmit && *policy != config.PhotoPolicyFail {
		fmt.Fprintf(errOut, "invalid -photo-policy %q\n", *policy)
		return 2
	}

	log := jsonlog.New(errOut, cfg.Location())

	encoder := photo.NewEncoder(&photo.Resolver{
		HTTP: photo.NewHTTPSource(photo.HTTPOptions{
			AllowPrivate: cfg.Export.PhotoAllowPrivate,
			AllowedHosts: cfg.Export.PhotoAllowedHosts,
			MaxRedirects: cfg.Export.PhotoMaxRedirects,
		}),
		File: &photo.FileSource{},
	}, photo.Options{
		Timeout:   cfg.Export.PhotoTimeout,
		MaxBytes:  cfg.Export.PhotoMaxBytes,
		MaxPixels: cfg.Export.PhotoMaxPixels,
		Quality:   cfg.Export.JPEGQuality,
	})
	exporter := service.NewExporter(encoder, service.ExportOptions{
		PhotoPolicy: *policy,
		Filename:    *filename,
	}, nil, log)

	contact := service.ContactFromConfig(cfg.Contact)
	contact.PhotoRef = *photoRef

	file, err := exporter.Export(ctx, contact)
	if err != nil {
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}

	path, err := download.Save(*outDir, file)
	if err != nil {
		log.Error("vcard_save_failed", map[string]any{"error": err.Error(), "dir": *outDir})
		fmt.Fprintf(errOut, "save: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprintln(out, path)
	return 0
}
