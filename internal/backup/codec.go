// Package backup encodes and decodes ledger backup files: plaintext,
// password-encrypted, and the legacy XOR-obfuscated format.
package backup

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/theirongolddev/expplan/internal/model"
)

// Version is the only backup format version this build reads and writes.
const Version = 1

// TimestampLayout matches the ISO 8601 form older files were written with.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Header is the unencrypted part of a backup file.
type Header struct {
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
	Encrypted bool   `json:"encrypted,omitempty"`
	Cipher    string `json:"cipher,omitempty"`
	Salt      string `json:"salt,omitempty"`
}

// Legacy reports whether the file uses the XOR scheme.
func (h Header) Legacy() bool {
	return h.Encrypted && h.Cipher == ""
}

// Time parses the header timestamp.
func (h Header) Time() (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, h.Timestamp); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, h.Timestamp)
}

type file struct {
	Header
	Data json.RawMessage `json:"data"`
}

func newHeader(at time.Time) Header {
	return Header{Version: Version, Timestamp: at.UTC().Format(TimestampLayout)}
}

// Inspect reads a file's header without touching its data.
func Inspect(b []byte) (Header, error) {
	f, err := parse(b)
	if err != nil {
		return Header{}, err
	}
	return f.Header, nil
}

func parse(b []byte) (file, error) {
	var f file
	if err := json.Unmarshal(b, &f); err != nil {
		return file{}, formatErr("%v", err)
	}
	if len(f.Data) == 0 || string(f.Data) == "null" {
		return file{}, formatErr("missing data")
	}
	return f, nil
}

// migrate gates a file on its version. Future versions convert their data
// to the current shape here.
func migrate(h Header) error {
	switch h.Version {
	case Version:
		return nil
	default:
		return &UnsupportedVersionError{Version: h.Version}
	}
}

// Encode writes state as a plaintext backup file.
func Encode(state model.State, at time.Time) ([]byte, error) {
	data, err := json.Marshal(toData(state))
	if err != nil {
		return nil, fmt.Errorf("encoding ledger: %w", err)
	}
	return marshalFile(file{Header: newHeader(at), Data: data})
}

func marshalFile(f file) ([]byte, error) {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding backup file: %w", err)
	}
	return b, nil
}

// Decode reads a plaintext backup file and validates its contents.
func Decode(b []byte) (model.State, error) {
	f, err := parse(b)
	if err != nil {
		return model.State{}, err
	}
	if err := migrate(f.Header); err != nil {
		return model.State{}, err
	}
	if f.Encrypted {
		return model.State{}, formatErr("file is encrypted, a password is required")
	}
	return decodeData(f.Data)
}

func decodeData(raw []byte) (model.State, error) {
	var d ledgerData
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.State{}, formatErr("data: %v", err)
	}
	state, err := d.toState()
	if err != nil {
		return model.State{}, fmt.Errorf("backup data: %w", err)
	}
	return state, nil
}

// EncodeEncrypted writes state as a password-encrypted backup file.
func EncodeEncrypted(state model.State, at time.Time, password string) ([]byte, error) {
	if password == "" {
		return nil, model.NewValidationError("password", "is required")
	}
	plain, err := json.Marshal(toData(state))
	if err != nil {
		return nil, fmt.Errorf("encoding ledger: %w", err)
	}
	h := newHeader(at)
	h.Encrypted = true
	h.Cipher = CipherAEAD

	sealed, salt, err := seal(plain, password, associatedData(h))
	if err != nil {
		return nil, err
	}
	h.Salt = encoding.EncodeToString(salt)
	data, err := json.Marshal(encoding.EncodeToString(sealed))
	if err != nil {
		return nil, fmt.Errorf("encoding ciphertext: %w", err)
	}
	return marshalFile(file{Header: h, Data: data})
}

// EncodeLegacy writes state in the XOR-obfuscated format older releases
// produced. It offers no integrity and only nominal confidentiality.
func EncodeLegacy(state model.State, at time.Time, password string) ([]byte, error) {
	if password == "" {
		return nil, model.NewValidationError("password", "is required")
	}
	plain, err := json.Marshal(toData(state))
	if err != nil {
		return nil, fmt.Errorf("encoding ledger: %w", err)
	}
	h := newHeader(at)
	h.Encrypted = true
	data, err := json.Marshal(encoding.EncodeToString(xorKey(plain, password)))
	if err != nil {
		return nil, fmt.Errorf("encoding ciphertext: %w", err)
	}
	return marshalFile(file{Header: h, Data: data})
}

// DecodeEncrypted reads an encrypted backup file. The scheme is chosen by
// the header's cipher field; files without one use the legacy scheme. Any
// failure after the header is accepted is reported as ErrDecryption.
func DecodeEncrypted(b []byte, password string) (model.State, error) {
	f, err := parse(b)
	if err != nil {
		return model.State{}, err
	}
	if !f.Encrypted {
		return model.State{}, formatErr("file is not encrypted")
	}
	if err := migrate(f.Header); err != nil {
		return model.State{}, err
	}

	var text string
	if err := json.Unmarshal(f.Data, &text); err != nil {
		return model.State{}, decryptErr(fmt.Errorf("data is not a string: %w", err))
	}
	raw, err := encoding.DecodeString(text)
	if err != nil {
		return model.State{}, decryptErr(err)
	}

	var plain []byte
	switch f.Cipher {
	case "":
		if password == "" {
			return model.State{}, decryptErr(fmt.Errorf("empty password"))
		}
		plain = xorKey(raw, password)
	case CipherAEAD:
		salt, err := encoding.DecodeString(f.Salt)
		if err != nil {
			return model.State{}, decryptErr(fmt.Errorf("salt: %w", err))
		}
		if plain, err = open(raw, salt, password, associatedData(f.Header)); err != nil {
			return model.State{}, decryptErr(err)
		}
	default:
		return model.State{}, formatErr("unknown cipher %q", f.Cipher)
	}

	state, err := decodeData(plain)
	if err != nil {
		return model.State{}, decryptErr(err)
	}
	return state, nil
}
