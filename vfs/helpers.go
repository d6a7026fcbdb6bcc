package vfs

import (
	"bytes"
	"io"
	"io/ioutil"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ProjectExtensions are the file types the importer reads
var ProjectExtensions = []string{".editorproject", ".json", ".yaml", ".yml"}

func IsProjectFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range ProjectExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func OpenFileAndGetReader(f File, readonly bool) (*io.SectionReader, error) {
	if err := f.Open(readonly); err != nil {
		return nil, errors.Wrapf(err, "Cannot open file %q", f.Name())
	}
	r, err := f.Reader()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "Cannot get file %q reader", f.Name())
	}
	return r, nil
}

func OpenFileAndCopy(f File, src io.Reader) error {
	if err := f.Open(false); err != nil {
		return errors.Wrapf(err, "Cannot open file %q", f.Name())
	}
	defer f.Close()
	if err := f.Copy(src); err != nil {
		return errors.Wrapf(err, "Cannot copy data to file %q", f.Name())
	}
	return nil
}

func DirectoryGetFile(d Directory, name string) (File, error) {
	e, err := d.GetElement(name)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot open file %q", name)
	}
	if e.IsDirectory() {
		return nil, errors.Errorf("File %q is directory, not a file", name)
	}
	return e.(File), nil
}

// ListProjects returns sorted names of project files directly inside d
func ListProjects(d Directory) ([]string, error) {
	names, err := d.List()
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(names))
	for _, name := range names {
		if IsProjectFile(name) {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result, nil
}

func ReadFile(d Directory, name string) ([]byte, error) {
	f, err := DirectoryGetFile(d, name)
	if err != nil {
		return nil, err
	}
	r, err := OpenFileAndGetReader(f, true)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read %q", name)
	}
	return data, nil
}

// WriteFile creates or replaces name inside d
func WriteFile(d Directory, name string, data []byte) error {
	if strings.ContainsAny(name, "/\\") {
		return errors.Errorf("Invalid file name %q", name)
	}
	if err := d.Add(NewDirectoryDriverFile(name)); err != nil {
		return err
	}
	f, err := DirectoryGetFile(d, name)
	if err != nil {
		return err
	}
	return OpenFileAndCopy(f, bytes.NewReader(data))
}
