package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	nkom "github.com/noriko-engine/nkom-runtime"
	"github.com/noriko-engine/nkom-runtime/manifest"
	"github.com/noriko-engine/nkom-runtime/provider/wasm"
	"github.com/noriko-engine/nkom-runtime/runtime"
)

func main() {
	var (
		manifestDir = flag.String("manifest", "", "Directory containing nkom.toml (default: search upward from the working directory)")
		demo        = flag.Bool("demo", false, "Install the built-in demo classes")
		list        = flag.Bool("list", false, "List registered classes and exit")
		create      = flag.String("create", "", "Create and release one instance of the given CLSID")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if err := run(*manifestDir, *demo, *list, *create, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(manifestDir string, demo, list bool, createCLSID string, interactive bool) error {
	ctx := context.Background()

	m, err := resolveManifest(manifestDir)
	if err != nil {
		return err
	}

	h, err := newHost(ctx, m, demo)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.close(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "teardown: %v\n", err)
		}
	}()

	switch {
	case interactive:
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(h)
	case createCLSID != "":
		return createOnce(ctx, h, createCLSID)
	case list:
		return listClasses(h)
	default:
		return printStatus(h, m)
	}
}

// resolveManifest loads the manifest the flags point at. Without -manifest
// the search walks up from the working directory, and finding nothing is
// fine: the host starts empty.
func resolveManifest(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = &manifest.Manifest{}
	}
	return m, nil
}

// host wires a runtime to the class factories a manifest names.
type host struct {
	rt        *runtime.Runtime
	log       *zap.Logger
	factories []*wasm.Factory
}

func newHost(ctx context.Context, m *manifest.Manifest, demo bool) (*host, error) {
	log, err := m.Runtime.BuildLogger()
	if err != nil {
		return nil, err
	}

	rt := runtime.NewWithConfig(&runtime.Config{
		Logger:   log,
		Capacity: m.Runtime.Capacity,
	})
	if _, err := rt.Initialize(); err != nil {
		return nil, err
	}

	h := &host{rt: rt, log: log}

	if demo {
		if err := rt.InstallClassFactory(demoFactory()); err != nil {
			_ = h.close(ctx)
			return nil, fmt.Errorf("install demo classes: %w", err)
		}
	}

	for _, p := range m.Providers {
		data, err := os.ReadFile(m.ResolvePath(p))
		if err != nil {
			_ = h.close(ctx)
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		f, err := wasm.Load(ctx, data, &wasm.Config{
			Logger:           log,
			Name:             p.Name,
			MemoryLimitPages: p.MemoryLimitPages,
		})
		if err != nil {
			_ = h.close(ctx)
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		if err := rt.InstallClassFactory(f); err != nil {
			f.Release()
			_ = h.close(ctx)
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		h.factories = append(h.factories, f)
	}

	return h, nil
}

// close tears everything down, aggregating whatever goes wrong on the way.
func (h *host) close(ctx context.Context) error {
	var errs error
	if _, err := h.rt.Uninitialize(); err != nil {
		errs = multierr.Append(errs, err)
	}
	for _, f := range h.factories {
		errs = multierr.Append(errs, f.Close(ctx))
		f.Release()
	}
	return errs
}

// classEntry is one row of the class listing.
type classEntry struct {
	id     nkom.CLSID
	name   string
	origin string
}

func (h *host) classEntries() ([]classEntry, error) {
	ids, err := h.rt.Classes()
	if err != nil {
		return nil, err
	}

	entries := make([]classEntry, 0, len(ids))
	for _, id := range ids {
		e := classEntry{id: id, origin: "host"}
		if name, ok := nkom.ClassName(id); ok {
			e.name = name
		}
		if f, err := h.rt.FactoryForClass(id); err == nil {
			if wf, ok := f.(*wasm.Factory); ok {
				e.origin = "wasm:" + wf.Name()
			}
			f.Release()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func printStatus(h *host, m *manifest.Manifest) error {
	entries, err := h.classEntries()
	if err != nil {
		return err
	}

	fmt.Printf("Runtime: running, %d class(es) registered\n", len(entries))
	fmt.Printf("Providers: %d installed\n", len(h.factories))
	if m.Dir != "" {
		fmt.Printf("Manifest: %s\n", m.Dir)
	}
	fmt.Println()
	fmt.Println("Use -list to enumerate classes, -create <clsid> to exercise one,")
	fmt.Println("or -i for the interactive inspector. -demo installs sample classes.")
	return nil
}

func listClasses(h *host) error {
	entries, err := h.classEntries()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No classes registered. Use -demo or a manifest with providers.")
		return nil
	}
	fmt.Printf("Registered classes (%d):\n", len(entries))
	for _, e := range entries {
		name := e.name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %s  %-24s %s\n", e.id, name, e.origin)
	}
	return nil
}

// createOnce creates one instance and walks it through the reference count
// choreography, printing each observed count.
func createOnce(ctx context.Context, h *host, clsText string) error {
	clsID, err := nkom.ParseUUID(clsText)
	if err != nil {
		return err
	}

	obj, err := h.rt.CreateInstance(ctx, clsID, nil, nkom.IIDObject, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Created %s\n", nkom.DescribeCLSID(clsID))
	fmt.Printf("  AddRef  -> %d\n", obj.AddRef())
	fmt.Printf("  Release -> %d\n", obj.Release())
	n := obj.Release()
	fmt.Printf("  Release -> %d\n", n)
	if n == 0 {
		fmt.Println("  instance destroyed")
	}
	return nil
}
