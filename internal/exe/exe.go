// Package exe extracts version metadata from engine executables.
//
// Only Windows PE images carry a version resource. ELF and Mach-O binaries
// are recognized so that a record can still be produced for them.
package exe

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/source"
	"github.com/jchantrell/wadinfo/internal/utils"
)

type format int

const (
	formatUnknown format = iota
	formatMZ
	formatELF
	formatMachO
)

var (
	magicMZ  = []byte("MZ")
	magicELF = []byte("\x7fELF")
	// 32/64-bit Mach-O in both byte orders, and universal binaries.
	magicMachO = [][]byte{
		{0xfe, 0xed, 0xfa, 0xce},
		{0xfe, 0xed, 0xfa, 0xcf},
		{0xce, 0xfa, 0xed, 0xfe},
		{0xcf, 0xfa, 0xed, 0xfe},
		{0xca, 0xfe, 0xba, 0xbe},
	}
)

// Sniff reports whether head starts with a known executable signature.
func Sniff(head []byte) bool {
	return sniff(head) != formatUnknown
}

func sniff(head []byte) format {
	switch {
	case bytes.HasPrefix(head, magicMZ):
		return formatMZ
	case bytes.HasPrefix(head, magicELF):
		return formatELF
	}
	for _, m := range magicMachO {
		if bytes.HasPrefix(head, m) {
			return formatMachO
		}
	}
	return formatUnknown
}

type options struct {
	fileName string
}

// Option configures Read.
type Option func(*options)

// WithFileName supplies the executable path, used to guess the engine family
// when the version resource does not name the product.
func WithFileName(name string) Option {
	return func(o *options) {
		o.fileName = name
	}
}

// Read parses the executable in src. A missing version block is a warning;
// only an unknown signature or a broken PE header fails.
func Read(src source.ByteSource, opts ...Option) (*metadata.Record, error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	b := metadata.NewBuilder(metadata.KindExecutable)
	switch sniff(source.Prefix(src, 4)) {
	case formatMZ:
		if err := readMZ(src, b); err != nil {
			return nil, err
		}
	case formatELF:
		b.Warn("no version resource for ELF executables")
	case formatMachO:
		b.Warn("no version resource for Mach-O executables")
	default:
		return nil, fmt.Errorf("%w: not a known executable signature", metadata.ErrUnsupportedFormat)
	}

	b.SetFamily(guessFamily(o.fileName, b.Product()))
	r := b.Build()
	v, _ := r.Version()
	slog.Debug("Read executable", "product", r.Product(), "version", v, "family", r.Family())
	return r, nil
}

func readMZ(src source.ByteSource, b *metadata.Builder) error {
	img, err := openPE(src)
	if err != nil {
		return err
	}
	if img == nil {
		b.Warn("no version resource for DOS executables")
		return nil
	}

	data, err := img.versionResource()
	if err != nil {
		b.Warn("version resource unreadable: %v", err)
		return nil
	}
	if data == nil {
		b.Warn("no version resource")
		return nil
	}

	info, err := parseVersionInfo(data)
	if err != nil {
		b.Warn("version resource unreadable: %v", err)
		return nil
	}
	applyVersionInfo(b, info)
	return nil
}

func applyVersionInfo(b *metadata.Builder, info *versionInfo) {
	b.SetProduct(info.strings["ProductName"])
	b.SetDescription(info.strings["FileDescription"])

	switch {
	case !info.fileVersion.IsZero():
		b.SetVersion(info.fileVersion.String())
	case !info.productVersion.IsZero():
		b.SetVersion(info.productVersion.String())
	case info.strings["FileVersion"] != "":
		s := info.strings["FileVersion"]
		if v, err := utils.ParseVersion(s); err == nil {
			b.SetVersion(v.String())
		} else {
			b.SetVersion(strings.TrimSpace(s))
		}
	default:
		b.Warn("version resource has no file version")
	}
}

func guessFamily(fileName, product string) string {
	if fileName != "" {
		base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
		if f, ok := LookupFamily(base); ok {
			return f
		}
	}
	return GuessFamily(product)
}
