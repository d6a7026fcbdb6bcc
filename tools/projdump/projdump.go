package main

import (
	"flag"
	"log"
	"os"

	"github.com/mogaika/scene_project/importer"
	"github.com/mogaika/scene_project/project"
	"github.com/mogaika/scene_project/scene"
	"github.com/mogaika/scene_project/utils"
)

func main() {
	var raw bool
	flag.BoolVar(&raw, "raw", false, "Dump decoded records instead of the imported scene")
	flag.Parse()

	for _, path := range flag.Args() {
		if raw {
			p, err := project.Load(path)
			if err != nil {
				log.Fatal(err)
			}
			utils.Fdump(os.Stdout, p)
			continue
		}

		sc := scene.New(path)
		if err := importer.ImportFile(sc, path, importer.WithVerbose(true)); err != nil {
			log.Fatal(err)
		}
		utils.Fdump(os.Stdout, sc)
	}
}
