package main

import (
	"bytes"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/exporter"
	"github.com/mogaika/scene_project/importer"
	"github.com/mogaika/scene_project/project"
	"github.com/mogaika/scene_project/scene"
)

// convert imports in and writes the re-exported scene as format, which
// defaults to the extension of out
func convert(in, out, format string, strict, verbose bool) error {
	sc := scene.New(strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)))
	if err := importer.ImportFile(sc, in,
		importer.WithStrict(strict),
		importer.WithVerbose(verbose),
		importer.WithRootURL(filepath.Dir(in)+"/")); err != nil {
		return err
	}

	var data []byte
	var err error
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(out), ".")
	}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		data, err = project.EncodeYAML(exporter.Export(sc))
	case "glb", "gltf":
		var buf bytes.Buffer
		err = exporter.ExportGLTF(sc, &buf)
		data = buf.Bytes()
	default:
		return project.Save(out, exporter.Export(sc))
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return errors.Wrapf(err, "Failed to write %q", out)
	}
	return nil
}

func main() {
	var in, out, format string
	var strict, verbose bool
	flag.StringVar(&in, "in", "", "Project file to import")
	flag.StringVar(&out, "out", "", "Output file (.editorproject, .json, .yaml or .glb)")
	flag.StringVar(&format, "format", "", "Output format (json, yaml or glb), by default from -out extension")
	flag.BoolVar(&strict, "strict", false, "Fail on any diagnostic")
	flag.BoolVar(&verbose, "verbose", false, "Report dangling references")
	flag.Parse()

	if in == "" || out == "" {
		flag.PrintDefaults()
		return
	}

	if err := convert(in, out, format, strict, verbose); err != nil {
		log.Fatal(err)
	}
	log.Printf("Converted %s -> %s", in, out)
}
