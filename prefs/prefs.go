// Package prefs builds and parses the symmetric/hash/compression preference
// lists a self-signature advertises, plus the two feature flags that
// ride alongside them (MDC, keyserver-modify). It never talks to the
// agent or the keyring; it only turns a textual override into a
// validated Preferences value, or produces the engine's own default.
package prefs

import (
	"strconv"
	"strings"

	"nullprogram.com/x/opengpg-core/pgperr"
)

// Algorithm ids this engine advertises (RFC 4880 §9).
const (
	SymAES256 = 9
	SymAES192 = 8
	SymAES128 = 7
	Sym3DES   = 2

	HashSHA256 = 8
	HashSHA384 = 9
	HashSHA512 = 10
	HashSHA224 = 11
	HashSHA1   = 2

	CompZLIB        = 2
	CompBZIP2       = 3
	CompZIP         = 1
	CompUncompressed = 0
)

const maxPreferenceItems = 30

// Preferences is the set of algorithm-preference lists a
// self-signature's hashed area carries, plus the feature flags.
type Preferences struct {
	Symmetric   []byte
	Hash        []byte
	Compression []byte
	MDC         bool
	KeyserverModify bool
}

// Default is the preference list this engine advertises when nothing
// overrides it, with 3DES always present as the universal symmetric
// fallback.
func Default() Preferences {
	return Preferences{
		Symmetric:       []byte{SymAES256, SymAES192, SymAES128, Sym3DES},
		Hash:            []byte{HashSHA256, HashSHA384, HashSHA512, HashSHA224, HashSHA1},
		Compression:     []byte{CompZLIB, CompBZIP2, CompZIP},
		MDC:             true,
		KeyserverModify: true,
	}
}

// Warning describes a non-fatal issue Parse found (a dropped
// duplicate, an unrecognised token treated as a no-op).
type Warning struct {
	Token  string
	Reason string
}

var symNames = map[string]byte{"aes256": SymAES256, "aes192": SymAES192, "aes128": SymAES128, "3des": Sym3DES, "tripledes": Sym3DES}
var hashNames = map[string]byte{"sha256": HashSHA256, "sha384": HashSHA384, "sha512": HashSHA512, "sha224": HashSHA224, "sha1": HashSHA1}
var compNames = map[string]byte{"zlib": CompZLIB, "bzip2": CompBZIP2, "zip": CompZIP, "uncompressed": CompUncompressed}

// Parse turns a textual preference string into a Preferences value.
// Tokens are algorithm names (case-insensitive) or SNN/HNN/ZNN numeric
// codes; "mdc"/"no-mdc"/"ks-modify"/"no-ks-modify" toggle the feature
// flags; "none" yields empty lists; "default" restores Default.
// Duplicate tokens are dropped with a Warning, never an error.
func Parse(s string) (Preferences, []Warning, error) {
	fields := strings.Fields(s)
	if len(fields) == 1 && strings.EqualFold(fields[0], "default") {
		return Default(), nil, nil
	}
	if len(fields) == 1 && strings.EqualFold(fields[0], "none") {
		return Preferences{}, nil, nil
	}

	out := Default()
	out.Symmetric = nil
	out.Hash = nil
	out.Compression = nil
	out.MDC = false
	out.KeyserverModify = false

	var warnings []Warning
	seenSym := map[byte]bool{}
	seenHash := map[byte]bool{}
	seenComp := map[byte]bool{}

	for _, tok := range fields {
		lower := strings.ToLower(tok)
		switch lower {
		case "mdc":
			out.MDC = true
			continue
		case "no-mdc":
			out.MDC = false
			continue
		case "ks-modify":
			out.KeyserverModify = true
			continue
		case "no-ks-modify":
			out.KeyserverModify = false
			continue
		}

		if code, ok := symNames[lower]; ok {
			out.Symmetric, warnings = appendUnique(out.Symmetric, code, tok, seenSym, warnings)
			continue
		}
		if code, ok := hashNames[lower]; ok {
			out.Hash, warnings = appendUnique(out.Hash, code, tok, seenHash, warnings)
			continue
		}
		if code, ok := compNames[lower]; ok {
			out.Compression, warnings = appendUnique(out.Compression, code, tok, seenComp, warnings)
			continue
		}
		if code, ok, kind := parseCode(tok); ok {
			switch kind {
			case 'S':
				out.Symmetric, warnings = appendUnique(out.Symmetric, code, tok, seenSym, warnings)
			case 'H':
				out.Hash, warnings = appendUnique(out.Hash, code, tok, seenHash, warnings)
			case 'Z':
				out.Compression, warnings = appendUnique(out.Compression, code, tok, seenComp, warnings)
			}
			continue
		}
		warnings = append(warnings, Warning{Token: tok, Reason: "unrecognised preference token"})
	}

	if len(out.Symmetric) > maxPreferenceItems || len(out.Hash) > maxPreferenceItems || len(out.Compression) > maxPreferenceItems {
		return Preferences{}, warnings, pgperr.E("prefs.Parse", pgperr.SourceCore, pgperr.Internal, "reason", "preference list exceeds 30 items")
	}
	return out, warnings, nil
}

func appendUnique(list []byte, code byte, tok string, seen map[byte]bool, warnings []Warning) ([]byte, []Warning) {
	if seen[code] {
		return list, append(warnings, Warning{Token: tok, Reason: "duplicate, dropped"})
	}
	seen[code] = true
	return append(list, code), warnings
}

// parseCode decodes an SNN/HNN/ZNN numeric preference code.
func parseCode(tok string) (code byte, ok bool, kind byte) {
	if len(tok) < 2 {
		return 0, false, 0
	}
	kind = byte(tok[0] & ^byte(0x20)) // uppercase
	if kind != 'S' && kind != 'H' && kind != 'Z' {
		return 0, false, 0
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n > 255 {
		return 0, false, 0
	}
	return byte(n), true, kind
}
