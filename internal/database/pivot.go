package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncPivot replaces the pivot rows owned by ownerID so that exactly relatedIDs remain.
// Duplicate and empty ids are dropped.
func SyncPivot(tx *gorm.DB, table, ownerCol, ownerID, relatedCol string, relatedIDs []string) error {
	if err := tx.Exec("DELETE FROM ? WHERE ? = ?",
		clause.Table{Name: table}, clause.Column{Name: ownerCol}, ownerID).Error; err != nil {
		return err
	}

	ids := UniqueIDs(relatedIDs)
	if len(ids) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, map[string]interface{}{ownerCol: ownerID, relatedCol: id})
	}
	return tx.Table(table).Create(rows).Error
}

// PivotIDs returns the related ids linked to ownerID.
func PivotIDs(tx *gorm.DB, table, ownerCol, ownerID, relatedCol string) ([]string, error) {
	var ids []string
	err := tx.Table(table).
		Where(clause.Eq{Column: clause.Column{Name: ownerCol}, Value: ownerID}).
		Pluck(relatedCol, &ids).Error
	return ids, err
}

// UniqueIDs drops blanks and duplicates, keeping first-seen order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
