// Package database opens gorm connections and inspects table schemas.
//
// The sync run uses it to read the holoDelta card database, which ships as a
// sqlite file but can also be served from MySQL. Before reading, adapters call
// RequireColumns so a schema change upstream surfaces as ErrSchemaMismatch
// instead of silently empty records.
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	if err := database.RequireColumns(db, "cards", "card_number", "card_type"); err != nil {
//	    return err
//	}
package database
