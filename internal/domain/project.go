package domain

import "time"

// Project is an HTML document stored on behalf of a user.
type Project struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"usuario_id"`
	Title     string    `json:"titulo"`
	HTML      string    `json:"conteudo_html"`
	CreatedAt time.Time `json:"data_criacao"`
	UpdatedAt time.Time `json:"data_modificacao"`
}

// ProjectSummary is the listing view of a project, without its content.
type ProjectSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"titulo"`
	CreatedAt time.Time `json:"data_criacao"`
	UpdatedAt time.Time `json:"data_modificacao"`
	HTMLSize  int64     `json:"tamanho_html"`
}

// ProjectStats aggregates a user's stored projects.
type ProjectStats struct {
	Total          int64           `json:"total_projetos"`
	TotalHTMLBytes int64           `json:"tamanho_total_html"`
	Latest         *ProjectSummary `json:"projeto_mais_recente,omitempty"`
}
