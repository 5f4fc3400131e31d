package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.Rebuild([]Document{
		{ID: 1, Title: "Cien años de soledad", Author: "Gabriel García Márquez", Publisher: "Sudamericana", Category: "Novela", ISBN: "978-0307474728"},
		{ID: 2, Title: "El amor en los tiempos del cólera", Author: "Gabriel García Márquez", Publisher: "Oveja Negra", Category: "Novela", ISBN: "978-0307387264"},
		{ID: 3, Title: "Breve historia del tiempo", Author: "Stephen Hawking", Publisher: "Crítica", Category: "Ciencia", ISBN: "978-8498921984"},
	}))
	return idx
}

func TestSearchIsAccentInsensitive(t *testing.T) {
	idx := seedIndex(t)

	res, err := idx.Search(context.Background(), "colera", 10, 0)
	require.NoError(t, err)
	require.Equal(t, []uint{2}, res.IDs)

	res, err = idx.Search(context.Background(), "GARCIA", 10, 0)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{1, 2}, res.IDs)
}

func TestSearchToleratesTyposAndPrefixes(t *testing.T) {
	idx := seedIndex(t)

	res, err := idx.Search(context.Background(), "hawkimg", 10, 0)
	require.NoError(t, err)
	require.Contains(t, res.IDs, uint(3))

	res, err = idx.Search(context.Background(), "histo", 10, 0)
	require.NoError(t, err)
	require.Equal(t, []uint{3}, res.IDs)
}

func TestSearchByISBNAndPaging(t *testing.T) {
	idx := seedIndex(t)

	res, err := idx.Search(context.Background(), "978-8498921984", 10, 0)
	require.NoError(t, err)
	require.Equal(t, uint(3), res.IDs[0])

	page, err := idx.Search(context.Background(), "marquez", 1, 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	require.Len(t, page.IDs, 1)
}

func TestUpsertAndDelete(t *testing.T) {
	idx := seedIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(Document{ID: 3, Title: "El universo en una cáscara de nuez", Author: "Stephen Hawking"}))
	res, err := idx.Search(ctx, "cascara", 10, 0)
	require.NoError(t, err)
	require.Equal(t, []uint{3}, res.IDs)

	require.NoError(t, idx.Delete(3))
	count, err := idx.Count()
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	empty, err := idx.Search(ctx, "   ", 10, 0)
	require.NoError(t, err)
	require.Empty(t, empty.IDs)
}
