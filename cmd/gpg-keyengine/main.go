// This is free and unencumbered software released into the public domain.

// Command gpg-keyengine is a thin demo front end exercising the core
// engine: quick key generation against a local (agent-less) signer,
// and status-line reporting. Option parsing itself is out of scope for
// the engine; this shell just proves the wiring, staying a thin layer
// over the engine types it calls.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/skeeto/optparse-go"

	"nullprogram.com/x/opengpg-core/keygen"
	"nullprogram.com/x/opengpg-core/localsign"
	"nullprogram.com/x/opengpg-core/openpgp"
	"nullprogram.com/x/opengpg-core/openpgp/identity"
	"nullprogram.com/x/opengpg-core/openpgp/keyblock"
	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/openpgp/sigbuilder"
	"nullprogram.com/x/opengpg-core/pgplog"
	"nullprogram.com/x/opengpg-core/prefs"
	"nullprogram.com/x/opengpg-core/status"
)

func fatal(format string, args ...interface{}) {
	buf := bytes.NewBufferString("gpg-keyengine: ")
	fmt.Fprintf(buf, format, args...)
	buf.WriteRune('\n')
	os.Stderr.Write(buf.Bytes())
	os.Exit(2)
}

func usage(w *os.File) {
	fmt.Fprintln(w, "usage: gpg-keyengine [-v] [-a] -u uid --quick-gen")
	fmt.Fprintln(w, "       gpg-keyengine [-v] [-a] -u uid -i pwfile --derive")
}

// Returns the first line of a file not including \r or \n. Does not
// require a newline and does not return io.EOF.
func firstLine(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	if !s.Scan() {
		if err := s.Err(); err != io.EOF {
			return nil, err
		}
		return nil, nil // empty files are ok
	}
	return s.Bytes(), nil
}

// derive builds a deterministic Ed25519 primary plus Curve25519
// encryption subkey from the passphrase, self-signs and binds them,
// and returns the assembled keyblock.
func derive(uid string, passphrase []byte, created time.Time) (*keyblock.Keyblock, error) {
	signer := localsign.NewSigner()
	primary, subkey, err := signer.Derive(passphrase, []byte(uid), 1, created.Unix())
	if err != nil {
		return nil, err
	}
	primaryGrip, err := identity.Keygrip(primary)
	if err != nil {
		return nil, err
	}

	userid := &packet.UserID{ID: []byte(uid)}
	pref := prefs.Default()
	hashed := []packet.Subpacket{
		{Type: packet.SubKeyFlags, Data: []byte{packet.KeyFlagCertify | packet.KeyFlagSign}},
		{Type: packet.SubPreferredSymmetric, Data: pref.Symmetric},
		{Type: packet.SubPreferredHash, Data: pref.Hash},
		{Type: packet.SubPreferredCompression, Data: pref.Compression},
		{Type: packet.SubFeatures, Data: []byte{packet.FeatureMDC}},
	}
	selfSig, err := sigbuilder.Sign(
		sigbuilder.Target{Primary: primary, UserID: userid},
		packet.SigPositiveCertification, sigbuilder.HashSHA256, signer, primaryGrip,
		sigbuilder.Options{Created: created, Hashed: hashed},
	)
	if err != nil {
		return nil, err
	}

	binding, err := sigbuilder.Sign(
		sigbuilder.Target{Primary: primary, Subkey: subkey},
		packet.SigSubkeyBinding, sigbuilder.HashSHA256, signer, primaryGrip,
		sigbuilder.Options{Created: created, Hashed: []packet.Subpacket{
			{Type: packet.SubKeyFlags, Data: []byte{packet.KeyFlagEncryptCommunications | packet.KeyFlagEncryptStorage}},
		}},
	)
	if err != nil {
		return nil, err
	}

	return keyblock.Assemble(primary,
		[]*keyblock.UIDNode{{UserID: userid, Certs: []*packet.Signature{selfSig}}},
		[]*keyblock.SubkeyNode{{Key: subkey, Binding: binding}}, nil)
}

func main() {
	options := []optparse.Option{
		{Long: "quick-gen", Short: 'q', Kind: optparse.KindNone},
		{Long: "derive", Short: 'd', Kind: optparse.KindNone},
		{Long: "uid", Short: 'u', Kind: optparse.KindRequired},
		{Long: "input", Short: 'i', Kind: optparse.KindRequired},
		{Long: "armor", Short: 'a', Kind: optparse.KindNone},
		{Long: "verbose", Short: 'v', Kind: optparse.KindNone},
		{Long: "help", Short: 'h', Kind: optparse.KindNone},
	}

	var uid, input string
	var quickGen, deriveKey, armorOut, verbose bool

	results, _, err := optparse.Parse(options, os.Args)
	if err != nil {
		usage(os.Stderr)
		fatal("%s", err)
	}
	for _, r := range results {
		switch r.Long {
		case "quick-gen":
			quickGen = true
		case "derive":
			deriveKey = true
		case "uid":
			uid = r.Optarg
		case "input":
			input = r.Optarg
		case "armor":
			armorOut = true
		case "verbose":
			verbose = true
		case "help":
			usage(os.Stdout)
			os.Exit(0)
		}
	}
	if verbose {
		pgplog.SetOutput(os.Stderr)
		pgplog.SetDebug(true)
	}
	if !quickGen && !deriveKey {
		usage(os.Stderr)
		os.Exit(2)
	}
	if uid == "" {
		fatal("--uid is required")
	}

	st := status.New(os.Stderr)

	var kb *keyblock.Keyblock
	var handle string
	if deriveKey {
		if input == "" {
			fatal("--input is required for --derive")
		}
		passphrase, err := firstLine(input)
		if err != nil {
			fatal("%s", err)
		}
		kb, err = derive(uid, passphrase, time.Now())
		if err != nil {
			st.KeyNotCreated("")
			fatal("key derivation failed: %s", err)
		}
	} else {
		params := keygen.QuickGenerate(uid)

		// No agent reachable in this demo shell: fall back to the local
		// in-process source and signer.
		src := localsign.NewLocalSource()

		res, err := keygen.Generate(src, params, src.Signer, time.Now)
		if err != nil {
			st.KeyNotCreated(params.Handle)
			fatal("key generation failed: %s", err)
		}
		kb = res.Keyblock
		handle = res.Handle
	}

	fpr, err := kb.Primary.Fingerprint()
	if err != nil {
		fatal("%s", err)
	}
	letter := status.KeyCreatedPrimary
	if len(kb.Subkeys) > 0 {
		letter = status.KeyCreatedBoth
	}
	st.KeyCreated(letter, fpr, handle)

	fmt.Fprintf(os.Stderr, "%X  %s\n", fpr, identity.AlgoString(kb.Primary))

	encoded, err := kb.Encode()
	if err != nil {
		fatal("%s", err)
	}
	if armorOut {
		encoded = openpgp.Armor(encoded)
	}
	if _, err := os.Stdout.Write(encoded); err != nil {
		fatal("%s", err)
	}
}
