package web

import (
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

var ServerWorkspace *Workspace

func NewRouter(ws *Workspace, webPath string) http.Handler {
	ServerWorkspace = ws

	r := mux.NewRouter()
	r.HandleFunc("/json/projects", HandlerAjaxProjects).Methods("GET")
	r.HandleFunc("/json/scene", HandlerAjaxScene).Methods("GET")
	r.HandleFunc("/action/project/{file}/load", HandlerActionProjectLoad).Methods("POST")
	r.HandleFunc("/upload/project", HandlerUploadProject).Methods("POST")
	r.HandleFunc("/dump/project", HandlerDumpProject).Methods("GET")
	r.HandleFunc("/dump/project/yaml", HandlerDumpProjectYAML).Methods("GET")
	r.HandleFunc("/dump/gltf", HandlerDumpGLTF).Methods("GET")
	r.HandleFunc("/ws/status", HandlerWebsocketStatus)

	if webPath != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))
	}

	return handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stdout, r))
}

func StartServer(addr string, ws *Workspace, webPath string) error {
	log.Printf("[web] Starting server %v", addr)
	return http.ListenAndServe(addr, NewRouter(ws, webPath))
}
