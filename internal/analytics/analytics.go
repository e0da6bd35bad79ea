// Package analytics summarizes stored detections and audit entries per guild.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/Denny519/security-bot/internal/storage"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

type UserCount struct {
	UserID string
	Count  int
}

type Report struct {
	TotalDetections int
	ByCategory      map[string]int
	ByAction        map[string]int
	TopUsers        []UserCount
	AuditByLevel    map[string]int
}

// Report aggregates activity for one guild since the given time. TopUsers is
// sorted by detection count, capped at ten entries.
func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	detections, err := s.store.ListDetections(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}
	logs, err := s.store.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		ByCategory:   make(map[string]int),
		ByAction:     make(map[string]int),
		AuditByLevel: make(map[string]int),
	}
	perUser := make(map[string]int)
	for _, detection := range detections {
		report.TotalDetections++
		report.ByCategory[detection.Category]++
		report.ByAction[detection.Action]++
		perUser[detection.UserID]++
	}
	for _, log := range logs {
		report.AuditByLevel[log.Level]++
	}

	for userID, count := range perUser {
		report.TopUsers = append(report.TopUsers, UserCount{UserID: userID, Count: count})
	}
	sort.Slice(report.TopUsers, func(i, j int) bool {
		if report.TopUsers[i].Count != report.TopUsers[j].Count {
			return report.TopUsers[i].Count > report.TopUsers[j].Count
		}
		return report.TopUsers[i].UserID < report.TopUsers[j].UserID
	})
	if len(report.TopUsers) > 10 {
		report.TopUsers = report.TopUsers[:10]
	}
	return report, nil
}
