package service

import (
	"context"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
)

// listPageSize matches the store's hard cap on a single list call.
const listPageSize = 500

// The listAll helpers page through the store until a short page comes back.
// They force id-ascending order so offset paging stays stable, and collect
// the full set before returning; callers that mutate rows do so only after
// collection, so a mid-batch status flip cannot shift later pages.

func listAllPledges(ctx context.Context, repo repository.Repository, params repository.ListPledgesParams) ([]models.Pledge, error) {
	params.Limit = listPageSize
	params.Offset = 0
	params.OrderBy = "id"
	params.Asc = boolPtr(true)
	var all []models.Pledge
	for {
		page, err := repo.ListPledges(ctx, params)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
		params.Offset += listPageSize
	}
}

func listAllExecutionRecords(ctx context.Context, repo repository.Repository, params repository.ListExecutionRecordsParams) ([]models.PledgeExecutionRecord, error) {
	params.Limit = listPageSize
	params.Offset = 0
	params.OrderBy = "id"
	params.Asc = boolPtr(true)
	var all []models.PledgeExecutionRecord
	for {
		page, err := repo.ListExecutionRecords(ctx, params)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
		params.Offset += listPageSize
	}
}

func listAllSessions(ctx context.Context, repo repository.Repository, params repository.ListSessionsParams) ([]models.PledgeSession, error) {
	params.Limit = listPageSize
	params.Offset = 0
	params.OrderBy = "id"
	params.Asc = boolPtr(true)
	var all []models.PledgeSession
	for {
		page, err := repo.ListSessions(ctx, params)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
		params.Offset += listPageSize
	}
}
