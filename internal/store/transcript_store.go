package store

import (
	"bufio"
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"synapse/internal/domain"
)

var errEmptyTranscript = errors.New("transcript has no header")

// TranscriptFileStore appends sealed chat lines to one file.
type TranscriptFileStore struct {
	path string
	mu   sync.Mutex

	// Derived key for the last passphrase that opened the file.
	cachedPass []byte
	cachedKey  []byte
	cachedHdr  header
}

var _ domain.TranscriptStore = (*TranscriptFileStore)(nil)

// NewTranscriptFileStore returns a store writing to path.
func NewTranscriptFileStore(path string) *TranscriptFileStore {
	return &TranscriptFileStore{path: path}
}

// Path returns the transcript file location.
func (s *TranscriptFileStore) Path() string { return s.path }

// AppendMessages seals messages and appends them, creating the file on
// first use.
func (s *TranscriptFileStore) AppendMessages(passphrase string, messages ...domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, hdr, err := s.unlock(passphrase)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, m := range messages {
		raw, err := json.Marshal(m)
		if err != nil {
			return err
		}
		rec, err := seal(key, hdr, raw)
		if err != nil {
			return err
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return appendFile(s.path, buf.Bytes())
}

// LoadMessages decrypts the whole transcript. A missing file yields no
// messages and no error.
func (s *TranscriptFileStore) LoadMessages(passphrase string) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(s.path)
	if err != nil || b == nil {
		return nil, err
	}
	hdr, body, err := parseHeader(b)
	if err != nil {
		return nil, err
	}
	key, err := hdr.key(passphrase)
	if err != nil {
		return nil, err
	}

	var out []domain.ChatMessage
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for n := 2; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return out, fmt.Errorf("transcript line %d: %w", n, err)
		}
		pt, err := open(key, hdr, rec)
		if err != nil {
			return out, fmt.Errorf("transcript line %d: %w", n, err)
		}
		var m domain.ChatMessage
		if err := json.Unmarshal(pt, &m); err != nil {
			return out, fmt.Errorf("transcript line %d: %w", n, err)
		}
		out = append(out, m)
	}
	return out, sc.Err()
}

// unlock returns the key and header for passphrase, creating the file if
// it does not exist yet.
func (s *TranscriptFileStore) unlock(passphrase string) ([]byte, header, error) {
	if s.cachedKey != nil && subtle.ConstantTimeCompare(s.cachedPass, []byte(passphrase)) == 1 {
		return s.cachedKey, s.cachedHdr, nil
	}

	b, err := readFile(s.path)
	if err != nil {
		return nil, header{}, err
	}

	var (
		hdr header
		key []byte
	)
	switch {
	case b != nil:
		if hdr, _, err = parseHeader(b); err != nil {
			return nil, header{}, err
		}
		if key, err = hdr.key(passphrase); err != nil {
			return nil, header{}, err
		}
	default:
		N, r, p := scryptParamsDefault()
		if hdr, key, err = newHeader(passphrase, N, r, p); err != nil {
			return nil, header{}, err
		}
		line, err := json.Marshal(hdr)
		if err != nil {
			return nil, header{}, err
		}
		if err := writeFile(s.path, append(line, '\n'), 0o600); err != nil {
			return nil, header{}, err
		}
	}

	s.cachedPass = []byte(passphrase)
	s.cachedKey = key
	s.cachedHdr = hdr
	return key, hdr, nil
}

func parseHeader(b []byte) (header, []byte, error) {
	first, rest, _ := bytes.Cut(b, []byte{'\n'})
	if len(bytes.TrimSpace(first)) == 0 {
		return header{}, nil, errEmptyTranscript
	}
	var hdr header
	if err := json.Unmarshal(first, &hdr); err != nil {
		return header{}, nil, fmt.Errorf("transcript header: %w", err)
	}
	return hdr, rest, nil
}
