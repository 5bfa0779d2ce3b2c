package services

import (
	"context"
	"errors"

	"github.com/cubbyhq/cubby/internal/domain"
)

// forEachFolderInSubtree visits root and every folder beneath it using an
// explicit work stack; the hierarchy can be arbitrarily deep without growing
// the call stack. Children that disappear between the parent's snapshot and
// their own lookup are skipped. The visited set stops a corrupted child list
// from looping the walk.
func forEachFolderInSubtree(ctx context.Context, folders domain.FolderRepository, root *domain.Folder, visit func(folder *domain.Folder) error) error {
	stack := []*domain.Folder{root}
	visited := map[string]struct{}{root.ID: {}}

	for len(stack) > 0 {
		folder := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := visit(folder); err != nil {
			return err
		}

		for _, childID := range folder.ChildFolderIDs {
			if _, ok := visited[childID]; ok {
				continue
			}
			visited[childID] = struct{}{}

			child, err := folders.Get(ctx, childID)
			if err != nil {
				if errors.Is(err, domain.ErrFolderNotFound) {
					continue
				}

				return err
			}

			stack = append(stack, child)
		}
	}

	return nil
}
