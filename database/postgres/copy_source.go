package postgres

import (
	"github.com/PavelAgarkov/halt-pkg/halt"
	"github.com/jackc/pgx/v5"
)

// CopySource оборачивает pgx.CopyFromSource ячейкой halt. Пауза тормозит
// COPY прямо между строками, стоп завершает поток как обычный конец данных,
// так что уже переданные строки фиксируются.
type CopySource struct {
	inner   pgx.CopyFromSource
	cell    *halt.Halt
	stopped bool
}

var _ pgx.CopyFromSource = (*CopySource)(nil)

func NewCopySource(cell *halt.Halt, inner pgx.CopyFromSource) *CopySource {
	if cell == nil {
		panic("postgres.NewCopySource: nil cell")
	}
	if inner == nil {
		panic("postgres.NewCopySource: nil source")
	}
	return &CopySource{inner: inner, cell: cell}
}

func (s *CopySource) Next() bool {
	if !s.cell.Proceed() {
		s.stopped = true
		return false
	}
	return s.inner.Next()
}

func (s *CopySource) Values() ([]any, error) {
	return s.inner.Values()
}

func (s *CopySource) Err() error {
	return s.inner.Err()
}

// Stopped сообщает, оборвался ли поток по стопу, а не по концу данных.
func (s *CopySource) Stopped() bool {
	return s.stopped
}

func (s *CopySource) Remote() halt.Remote {
	return s.cell.Remote()
}
