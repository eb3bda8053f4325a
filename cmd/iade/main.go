package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"iadetakip/internal/backend"
	"iadetakip/internal/config"
	"iadetakip/internal/connectors"
	"iadetakip/internal/console"
	"iadetakip/internal/listener"
	"iadetakip/internal/pipeline"
	"iadetakip/internal/scanner"
	"iadetakip/internal/storage"
	"iadetakip/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	must(err)
	config.SetupLogging(cfg.LogLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := backend.Open(cfg)
	must(err)
	defer store.Close()
	if d, ok := store.(storage.Disabled); ok {
		fmt.Fprintln(os.Stderr, d.Reason())
	}

	tr := tracker.New(store)
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "status":
		must(tr.Refresh(ctx))
		s := tr.Stats()
		fmt.Printf("expected=%d received=%d missing=%d\n", s.Expected, s.Received, s.Missing)
		fmt.Println(tr.Status())
	case "expected:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		paths := fs.String("files", "", "comma-separated xlsx/csv/xls/pdf paths")
		_ = fs.Parse(args)
		files, err := pipeline.ReadInputFiles(append([]string{*paths}, fs.Args()...))
		must(err)
		res, err := tr.Import(ctx, files)
		must(err)
		fmt.Printf("import done batch=%s files=%d rows=%d written=%d skipped=%d\n", res.BatchID, res.Files, res.Rows, res.Written, res.Skipped)
	case "expected:list":
		must(tr.Refresh(ctx))
		printExpected(tr.Expected())
	case "expected:delete":
		must(tr.Refresh(ctx))
		n, err := tr.DeleteExpected(ctx, barcodeArgs(cmd, args)...)
		must(err)
		fmt.Printf("deleted %d expected\n", n)
	case "expected:clear":
		confirm(cmd, args)
		must(tr.ClearExpected(ctx))
		fmt.Println(tr.Status())
	case "received:add":
		must(tr.Refresh(ctx))
		for _, raw := range args {
			item, ok, err := tr.Scan(ctx, raw)
			must(err)
			if !ok {
				fmt.Printf("skipped %q: no barcode\n", raw)
				continue
			}
			fmt.Printf("received %s\n", item.Barcode)
		}
		fmt.Println(tr.Status())
	case "received:list":
		must(tr.Refresh(ctx))
		printReceived(tr.Received())
	case "received:delete":
		must(tr.Refresh(ctx))
		n, err := tr.DeleteReceived(ctx, barcodeArgs(cmd, args)...)
		must(err)
		fmt.Printf("deleted %d received\n", n)
	case "received:clear":
		confirm(cmd, args)
		must(tr.ClearReceived(ctx))
		fmt.Println(tr.Status())
	case "clear:all":
		confirm(cmd, args)
		must(tr.ClearAll(ctx))
		fmt.Println(tr.Status())
	case "missing":
		must(tr.Refresh(ctx))
		printMissing(tr.Missing())
	case "export:missing":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", filepath.Join(cfg.OutputDir, pipeline.MissingFileName(time.Now())), "output xlsx path")
		_ = fs.Parse(args)
		must(tr.Refresh(ctx))
		must(pipeline.ExportToFile(*out, tr.ExportMissing))
		fmt.Printf("exported %d missing to %s\n", tr.Stats().Missing, *out)
	case "export:received":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", filepath.Join(cfg.OutputDir, pipeline.ReceivedFileName(time.Now())), "output xlsx path")
		_ = fs.Parse(args)
		must(tr.Refresh(ctx))
		must(pipeline.ExportToFile(*out, tr.ExportReceived))
		fmt.Printf("exported %d received to %s\n", tr.Stats().Received, *out)
	case "scan":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		device := fs.String("device", cfg.ScannerDevice, "serial scanner device, e.g. /dev/ttyACM0")
		plain := fs.Bool("plain", false, "read codes line by line from stdin instead of the console")
		_ = fs.Parse(args)
		if err := tr.Refresh(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "refresh: %v\n", err)
		}
		if *device == "" && !*plain {
			must(console.Run(ctx, tr))
			return
		}
		must(scanLines(ctx, tr, *device))
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(args)
		conn, err := listener.NewConnector(ctx, cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(cfg.RawMailDir, conn, pipeline.NewImportService(store), cfg.ReturnsSubjectKeywords)
		res, err := fetch.FetchAndImport(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d new=%d imported=%d written=%d ignored=%d failed=%d\n",
			*provider, res.Fetched, res.New, res.Imported, res.Written, res.Ignored, res.Failed)
	case "mail:listen":
		must(listener.NewService(cfg, pipeline.NewImportService(store)).Run(ctx))
	case "backup":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", filepath.Join(cfg.OutputDir, "backup", "iade-"+time.Now().Format("20060102-150405")+".db"), "sqlite backup path")
		_ = fs.Parse(args)
		dst, err := storage.OpenSQLite(*out)
		must(err)
		defer dst.Close()
		res, err := backend.NewSyncService(store, dst).Mirror(ctx)
		must(err)
		fmt.Printf("backup done expected=%d received=%d path=%s\n", res.Expected, res.Received, *out)
	default:
		usage()
		os.Exit(1)
	}
}

// scanLines runs a scan session over a serial device, or stdin when
// device is empty, until input ends or the process is interrupted.
func scanLines(ctx context.Context, tr *tracker.Tracker, device string) error {
	det := &scanner.LineDetector{Path: device}
	if device == "" {
		det.Reader = os.Stdin
	}

	sess := scanner.NewSession(det, tr.Scan)
	sess.OnResult = func(r scanner.Result) {
		switch {
		case r.Err != nil:
			fmt.Printf("error %s: %v\n", r.Raw, r.Err)
		case !r.OK:
			fmt.Printf("skipped %q: no barcode\n", r.Raw)
		default:
			fmt.Println(tr.Status())
		}
	}

	if err := sess.Start(ctx); err != nil {
		return err
	}
	fmt.Println("scanning, Ctrl+C to stop")

	select {
	case <-ctx.Done():
	case <-sess.Done():
	}
	return sess.Stop()
}

func barcodeArgs(cmd string, args []string) []string {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	list := fs.String("barcodes", "", "comma-separated barcodes")
	_ = fs.Parse(args)

	out := fs.Args()
	for _, part := range strings.Split(*list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		must(fmt.Errorf("no barcodes given"))
	}
	return out
}

func confirm(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	yes := fs.Bool("yes", false, "confirm deletion")
	_ = fs.Parse(args)
	if !*yes {
		must(fmt.Errorf("%s deletes data permanently, rerun with --yes", cmd))
	}
}

func usage() {
	fmt.Println("usage: iade <command>")
	fmt.Println("commands:")
	fmt.Println("  status")
	fmt.Println("  expected:import --files=a.xlsx,b.csv")
	fmt.Println("  expected:list")
	fmt.Println("  expected:delete --barcodes=1,2 | <barcode>...")
	fmt.Println("  expected:clear --yes")
	fmt.Println("  received:add <barcode>...")
	fmt.Println("  received:list")
	fmt.Println("  received:delete --barcodes=1,2 | <barcode>...")
	fmt.Println("  received:clear --yes")
	fmt.Println("  clear:all --yes")
	fmt.Println("  missing")
	fmt.Println("  export:missing [--out=./out/Eksik_Iadeler_<date>.xlsx]")
	fmt.Println("  export:received [--out=./out/Gelen_Iadeler_<date>.xlsx]")
	fmt.Println("  scan [--device=/dev/ttyACM0] [--plain]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:listen")
	fmt.Println("  backup [--out=./out/backup/iade-<time>.db]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
