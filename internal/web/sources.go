package web

import (
	"net/http"
	"strconv"
	"strings"
)

func (s *Server) renderSourceList(w http.ResponseWriter, name string) {
	sources, err := s.syncer.Sources()
	if err != nil {
		s.serverError(w, "Error getting sources", err)
		return
	}
	s.render(w, name, map[string]any{"Sources": sources})
}

// handleGetSources renders the main sources management page.
func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	s.renderSourceList(w, "sources")
}

// handlePostSource adds a new source and re-renders the source list.
func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.PostFormValue("path"))
	if path == "" {
		http.Error(w, "Path cannot be empty", http.StatusBadRequest)
		return
	}
	if _, err := s.syncer.AddSource(path); err != nil {
		s.log.Warn("Rejected source", "path", path, "error", err)
		http.Error(w, "Failed to add source: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.renderSourceList(w, "source_list")
}

// handleDeleteSource deletes a source with its cards and re-renders the source list.
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid source ID", http.StatusBadRequest)
		return
	}
	if err := s.db.DeleteSource(id); err != nil {
		s.serverError(w, "Error deleting source", err)
		return
	}
	s.renderSourceList(w, "source_list")
}

// handlePostSync runs a sync in the foreground and re-renders the source list.
func (s *Server) handlePostSync(w http.ResponseWriter, r *http.Request) {
	reports, err := s.syncer.RunSync(r.Context())
	if err != nil {
		s.serverError(w, "Error running sync", err)
		return
	}
	inserted, deleted := 0, 0
	for _, rep := range reports {
		inserted += rep.Inserted
		deleted += rep.Deleted
	}
	s.render(w, "sync_success", map[string]int{"Inserted": inserted, "Deleted": deleted})
	s.renderSourceList(w, "source_list")
}
