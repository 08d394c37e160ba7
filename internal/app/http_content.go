package app

import "net/http"

// routeRoadmaps dispatches everything under /api/projects/{id}/roadmaps.
// rest holds the path segments after "roadmaps".
func (s *HTTPServer) routeRoadmaps(w http.ResponseWriter, r *http.Request, projectID string, rest []string) {
	switch {
	case len(rest) == 0:
		s.handleRoadmapCollection(w, r, projectID)
	case len(rest) == 1:
		s.handleRoadmap(w, r, projectID, rest[0])
	case len(rest) == 2 && rest[1] == "meta-chat":
		s.handleMetaChat(w, r, projectID, rest[0])
	case len(rest) == 2 && rest[1] == "chats":
		s.handleChatCollection(w, r, projectID, rest[0])
	case len(rest) == 3 && rest[1] == "chats":
		s.handleChat(w, r, projectID, rest[0], rest[2])
	case len(rest) == 4 && rest[1] == "chats" && rest[3] == "messages":
		s.handleMessages(w, r, projectID, rest[0], rest[2])
	case len(rest) == 4 && rest[1] == "chats" && rest[3] == "evaluate":
		s.handleEvaluate(w, r, projectID, rest[0], rest[2])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleRoadmapCollection(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.service.ListRoadmaps(r.Context(), projectID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roadmaps": items})
	case http.MethodPost:
		var body RoadmapInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateRoadmap(r.Context(), projectID, body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleRoadmap(w http.ResponseWriter, r *http.Request, projectID, roadmapID string) {
	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.GetRoadmap(r.Context(), projectID, roadmapID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodPut:
		var body RoadmapInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateRoadmap(r.Context(), projectID, roadmapID, body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodDelete:
		payload, err := s.service.DeleteRoadmap(r.Context(), projectID, roadmapID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleMetaChat(w http.ResponseWriter, r *http.Request, projectID, roadmapID string) {
	switch r.Method {
	case http.MethodGet:
		meta, err := s.service.GetMetaChat(r.Context(), projectID, roadmapID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"metaChat": meta})
	case http.MethodPost:
		payload, err := s.service.RecomputeMetaChat(r.Context(), projectID, roadmapID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleChatCollection(w http.ResponseWriter, r *http.Request, projectID, roadmapID string) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.service.ListChats(r.Context(), projectID, roadmapID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"chats": items})
	case http.MethodPost:
		var body ChatInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateChat(r.Context(), projectID, roadmapID, body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request, projectID, roadmapID, chatID string) {
	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.GetChat(r.Context(), projectID, roadmapID, chatID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodPut:
		var body ChatInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateChat(r.Context(), projectID, roadmapID, chatID, body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodDelete:
		payload, err := s.service.DeleteChat(r.Context(), projectID, roadmapID, chatID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleMessages(w http.ResponseWriter, r *http.Request, projectID, roadmapID, chatID string) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.service.ListMessages(r.Context(), projectID, roadmapID, chatID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": items})
	case http.MethodPost:
		var body MessageInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.AppendMessage(r.Context(), projectID, roadmapID, chatID, body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleEvaluate(w http.ResponseWriter, r *http.Request, projectID, roadmapID, chatID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	payload, err := s.service.EvaluateChat(r.Context(), projectID, roadmapID, chatID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// routeTemplates dispatches everything under /api/projects/{id}/templates.
func (s *HTTPServer) routeTemplates(w http.ResponseWriter, r *http.Request, projectID string, rest []string) {
	switch {
	case len(rest) == 0:
		s.handleTemplateCollection(w, r, projectID)
	case len(rest) == 1:
		s.handleTemplate(w, r, projectID, rest[0])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleTemplateCollection(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.service.ListTemplates(r.Context(), projectID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"templates": items})
	case http.MethodPost:
		var body TemplateInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.SaveTemplate(r.Context(), projectID, body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleTemplate(w http.ResponseWriter, r *http.Request, projectID, templateID string) {
	switch r.Method {
	case http.MethodGet:
		tmpl, err := s.service.GetTemplate(r.Context(), projectID, templateID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"template": tmpl})
	case http.MethodPut:
		var body TemplateInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		body.ID = templateID
		payload, err := s.service.SaveTemplate(r.Context(), projectID, body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodDelete:
		payload, err := s.service.DeleteTemplate(r.Context(), projectID, templateID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}
