package dto

// SaveProjectRequest creates a project, or updates it when ProjectID is set.
type SaveProjectRequest struct {
	Title     string `json:"titulo"`
	HTML      string `json:"conteudo_html"`
	ProjectID *int64 `json:"projeto_id"`
}

// CommandRequest is the body of POST /api/comando.
type CommandRequest struct {
	Action  string         `json:"acao"`
	Payload map[string]any `json:"dados"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Service   string `json:"servico"`
	Version   string `json:"versao"`
	Users     int64  `json:"total_usuarios"`
	Projects  int64  `json:"total_projetos"`
	Timestamp int64  `json:"timestamp"`
}
