package envfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/npcforge/forge-installer/internal/config"
)

const (
	// exportPrefix is accepted in front of keys and dropped on rewrite.
	exportPrefix = "export "
	// byteOrderMark is written by some Windows editors at the start of the file.
	byteOrderMark = "\xef\xbb\xbf"
)

// Entry is a single KEY=VALUE pair.
type Entry struct {
	Key   string
	Value string
}

// Merger ensures environment files contain every baseline key.
type Merger struct {
	// baseline lists required keys with their default values.
	baseline []Entry
	// secretKey is the key injected from the keystore.
	secretKey string
	// fileName is the environment file name.
	fileName string
}

// New creates a merger from settings.
func New(cfg config.Env) *Merger {
	baseline := make([]Entry, 0, len(cfg.Baseline))
	for _, e := range cfg.Baseline {
		baseline = append(baseline, Entry{Key: e.Key, Value: e.Value})
	}

	fileName := cfg.FileName
	if fileName == "" {
		fileName = ".env"
	}

	return &Merger{
		baseline:  baseline,
		secretKey: cfg.SecretKey,
		fileName:  fileName,
	}
}

// SecretKey returns the key injected from the keystore.
func (m *Merger) SecretKey() string {
	return m.secretKey
}

// Path returns the environment file path inside dir.
func (m *Merger) Path(dir string) string {
	return filepath.Join(dir, m.fileName)
}

// Ensure creates or merges the environment file in dir and returns its path.
// An empty secret means no secret is known: the secret key keeps its current
// value, or gets the baseline default when absent.
func (m *Merger) Ensure(dir, secret string) (string, error) {
	path := m.Path(dir)

	contents, err := os.ReadFile(filepath.Clean(path))

	var existing []Entry

	switch {
	case errors.Is(err, os.ErrNotExist):
		// Create mode.
	case err != nil:
		return "", fmt.Errorf("read %s: %w", path, err)
	default:
		existing = Parse(contents)
	}

	merged := m.merge(existing, secret)

	if err = os.WriteFile(path, Format(merged), config.DefaultFilePermissions); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return path, nil
}

// merge fills baseline keys into existing without touching edited values.
func (m *Merger) merge(existing []Entry, secret string) []Entry {
	result := make([]Entry, 0, len(existing)+len(m.baseline))
	index := make(map[string]int, len(existing)+len(m.baseline))

	for _, e := range existing {
		if i, dup := index[e.Key]; dup {
			// Last assignment wins, like a shell would.
			result[i].Value = e.Value

			continue
		}

		index[e.Key] = len(result)
		result = append(result, e)
	}

	for _, e := range m.baseline {
		value := e.Value
		if e.Key == m.secretKey && secret != "" {
			value = secret
		}

		i, present := index[e.Key]

		switch {
		case !present:
			index[e.Key] = len(result)
			result = append(result, Entry{Key: e.Key, Value: value})
		case e.Key == m.secretKey && secret != "":
			result[i].Value = secret
		}
	}

	return result
}

// Parse reads KEY=VALUE lines of any length. Blank lines, comments and lines
// without a valid key are skipped. Surrounding quotes are removed from values.
func Parse(contents []byte) []Entry {
	var entries []Entry

	contents = bytes.TrimPrefix(contents, []byte(byteOrderMark))

	for raw := range bytes.SplitSeq(contents, []byte{'\n'}) {
		line := strings.TrimSpace(string(raw))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, exportPrefix)

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		if !validKey(key) {
			continue
		}

		entries = append(entries, Entry{Key: key, Value: unquote(strings.TrimSpace(value))})
	}

	return entries
}

// Format renders entries one per line, quoting values that need it.
func Format(entries []Entry) []byte {
	var buf bytes.Buffer

	for _, e := range entries {
		buf.WriteString(e.Key)
		buf.WriteByte('=')
		buf.WriteString(quote(e.Value))
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}

func validKey(key string) bool {
	if key == "" {
		return false
	}

	for i, r := range key {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}

	switch {
	case value[0] == '"' && value[len(value)-1] == '"':
		if unquoted, err := strconv.Unquote(value); err == nil {
			return unquoted
		}

		return value[1 : len(value)-1]
	case value[0] == '\'' && value[len(value)-1] == '\'':
		return value[1 : len(value)-1]
	default:
		return value
	}
}

func quote(value string) string {
	if strings.ContainsAny(value, " \t\r\n\v\f#\"'") {
		return strconv.Quote(value)
	}

	return value
}
