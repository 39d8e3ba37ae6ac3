package redis

import (
	"sort"

	"github.com/jbtestsuite/jbtest/pkg/models"
)

func sortByCreation(testCases []*models.TestCase) {
	sort.Slice(testCases, func(i, j int) bool {
		if testCases[i].CreatedAt.Equal(testCases[j].CreatedAt) {
			return testCases[i].ID < testCases[j].ID
		}

		return testCases[i].CreatedAt.Before(testCases[j].CreatedAt)
	})
}
