package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/memory-storage/internal/model"
)

// Search finds files whose name or content contains the query as a literal,
// case-insensitive substring.
func (s *SQLStore) Search(ctx context.Context, p SearchParams) ([]model.FileInfo, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	query := "%" + escapeLike(strings.ToLower(p.Query)) + "%"

	where := []string{fmt.Sprintf(`(%[1]s(name) LIKE ? ESCAPE '\' OR %[1]s(%[2]s) LIKE ? ESCAPE '\')`,
		s.d.foldCase, s.d.contentText)}
	args := []interface{}{query, query}

	if p.Project != "" {
		where = append(where, "project = ?")
		args = append(args, p.Project)
	}

	sql := fmt.Sprintf(`
		SELECT `+fileInfoColumns+`
		FROM files
		WHERE %s
		ORDER BY last_modified DESC, project, name
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.q(sql), args...)
	if err != nil {
		return nil, model.StorageError("search", p.Project, "", err)
	}
	defer rows.Close()

	results := []model.FileInfo{}
	for rows.Next() {
		f, err := scanFileInfo(rows)
		if err != nil {
			return nil, model.StorageError("search", p.Project, "", err)
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in s match themselves.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
