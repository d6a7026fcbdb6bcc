package main

import (
	"flag"
	"log"

	"github.com/mogaika/scene_project/config"
	"github.com/mogaika/scene_project/texture"
	"github.com/mogaika/scene_project/vfs"
	"github.com/mogaika/scene_project/web"
)

func main() {
	var addr, dir, projectName, configPath, encoding string
	var strict, watch bool
	flag.StringVar(&configPath, "config", "", "Path to yaml or toml config")
	flag.StringVar(&addr, "i", "", "Address of server")
	flag.StringVar(&dir, "dir", "", "Path to folder with projects")
	flag.StringVar(&projectName, "project", "", "Project to load on start")
	flag.StringVar(&encoding, "encoding", "", "Charset of project files, UTF-8 or a single-byte charmap like \"Windows 1252\"")
	flag.BoolVar(&strict, "strict", false, "Fail import on any diagnostic")
	flag.BoolVar(&watch, "watch", false, "Reload loaded project when its file changes")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	// flags override config and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.Addr = addr
		case "dir":
			cfg.ProjectsDir = dir
		case "project":
			cfg.Project = projectName
		case "encoding":
			cfg.Encoding = encoding
		case "strict":
			cfg.Strict = strict
		case "watch":
			cfg.Watch = watch
		}
	})

	if err := cfg.Apply(); err != nil {
		log.Fatal(err)
	}

	textures, err := texture.NewCache(cfg.TextureCacheSize)
	if err != nil {
		log.Fatal(err)
	}

	ws := web.NewWorkspace(vfs.NewDirectoryDriver(cfg.ProjectsDir), cfg.Strict, textures)
	defer ws.Close()

	if cfg.Project != "" {
		if err := ws.Load(cfg.Project); err != nil {
			log.Printf("[main] %v", err)
		}
	}
	if cfg.Watch {
		if err := ws.Watch(); err != nil {
			log.Fatal(err)
		}
	}

	if err := web.StartServer(cfg.Addr, ws, "web"); err != nil {
		log.Fatal(err)
	}
}
