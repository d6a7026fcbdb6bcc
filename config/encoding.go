package config

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// UTF8 means project files are read as is
const UTF8 = "UTF-8"

var (
	encodingMu     sync.RWMutex
	currentCharMap *charmap.Charmap
)

// SetEncoding selects the legacy single-byte charset of project files
func SetEncoding(name string) error {
	encodingMu.Lock()
	defer encodingMu.Unlock()
	if name == "" || name == UTF8 {
		currentCharMap = nil
		return nil
	}
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if cm.String() == name {
				currentCharMap = cm
				return nil
			}
		}
	}
	return errors.Errorf("Failed to find encoding %q", name)
}

func ListEncodings() []string {
	list := []string{UTF8}
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}

// GetEncoding returns nil when no transcoding is configured
func GetEncoding() *charmap.Charmap {
	encodingMu.RLock()
	defer encodingMu.RUnlock()
	return currentCharMap
}

func GetEncodingName() string {
	if cm := GetEncoding(); cm != nil {
		return cm.String()
	}
	return UTF8
}

// DecodeText transcodes data from the configured charset to UTF-8
func DecodeText(data []byte) ([]byte, error) {
	cm := GetEncoding()
	if cm == nil {
		return data, nil
	}
	result, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode text from %v", cm)
	}
	return result, nil
}
