// glox image tool - inspect and manage compiled glox images
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/glox/manifest"
	"github.com/chazu/glox/vm"
	"github.com/chazu/glox/vm/image"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	disasm := flag.String("disasm", "", "Disassemble a compiled image file")
	put := flag.String("put", "", "Store a compiled image file in the image store")
	get := flag.String("get", "", "Fetch an image by content hash (hex) and disassemble it")
	list := flag.Bool("list", false, "List images in the store")
	storePath := flag.String("store", "", "Image store path (default: from glox.toml, else glox.db)")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: glox [options]\n\n")
		fmt.Fprintf(os.Stderr, "Inspects and manages compiled glox images.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  glox -disasm main.image        # Disassemble an image file\n")
		fmt.Fprintf(os.Stderr, "  glox -put main.image           # Store an image, print its hash\n")
		fmt.Fprintf(os.Stderr, "  glox -get 9f2c…                # Disassemble a stored image\n")
		fmt.Fprintf(os.Stderr, "  glox -list                     # List stored images\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	if *storePath == "" {
		*storePath = defaultStorePath()
	}

	switch {
	case *disasm != "":
		if err := disassembleFile(*disasm); err != nil {
			fail(err)
		}
	case *put != "":
		if err := putFile(*storePath, *put); err != nil {
			fail(err)
		}
	case *get != "":
		if err := getHash(*storePath, *get); err != nil {
			fail(err)
		}
	case *list:
		if err := listStore(*storePath); err != nil {
			fail(err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// defaultStorePath resolves the image store location from the nearest
// glox.toml, falling back to glox.db in the working directory.
func defaultStorePath() string {
	wd, err := os.Getwd()
	if err != nil {
		return "glox.db"
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil || m == nil {
		return "glox.db"
	}
	return m.StorePath()
}

func loadImage(path string) (*vm.Function, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return image.UnmarshalFunction(data, vm.NewStringTable())
}

func disassembleFile(path string) error {
	f, err := loadImage(path)
	if err != nil {
		return err
	}
	fmt.Print(vm.Disassemble(f.Chunk, f.Stringify()))
	return nil
}

func putFile(storePath, path string) error {
	f, err := loadImage(path)
	if err != nil {
		return err
	}
	store, err := image.OpenStore(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	h, err := store.Put(f)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", hex.EncodeToString(h[:]), f.Stringify())
	return nil
}

func getHash(storePath, hash string) error {
	raw, err := hex.DecodeString(hash)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("invalid content hash %q", hash)
	}
	var h [32]byte
	copy(h[:], raw)

	store, err := image.OpenStore(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := store.Get(h, vm.NewStringTable())
	if err != nil {
		return err
	}
	fmt.Print(vm.Disassemble(f.Chunk, f.Stringify()))
	return nil
}

func listStore(storePath string) error {
	store, err := image.OpenStore(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %s\n", hex.EncodeToString(e.Hash[:]), e.Name)
	}
	return nil
}
