package app

import (
	"sort"

	"contest-service/internal/domain"
)

// ComputeStandings ranks users by score, highest first. Equal scores keep the
// order of the input snapshot.
func ComputeStandings(users []domain.User) []domain.Standing {
	standings := make([]domain.Standing, 0, len(users))
	for _, u := range users {
		standings = append(standings, domain.Standing{
			UserID:      u.UserID,
			DisplayName: u.Name(),
			Score:       u.Score,
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// ComputeSolverCounts counts, per problem instance, the users credited for it.
func ComputeSolverCounts(users []domain.User) map[string]int {
	counts := make(map[string]int)
	for _, u := range users {
		for _, id := range u.Solved {
			counts[id]++
		}
	}
	return counts
}

// ComputeBoard derives the full leaderboard from one users snapshot.
func ComputeBoard(users []domain.User) domain.Board {
	return domain.Board{
		Standings:    ComputeStandings(users),
		SolverCounts: ComputeSolverCounts(users),
	}
}
