package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upInitTables, downInitTables)
}

func upInitTables(ctx context.Context, tx *sql.Tx) error {
	// Create users table
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE users (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_expiry TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}

	// Create destinations table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE destinations (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			owner_id UUID,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_expiry TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}

	// Create trip_nodes table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trip_nodes (
			id UUID PRIMARY KEY,
			kind INTEGER NOT NULL,
			name VARCHAR(255),
			destination_id UUID,
			arrival_date TIMESTAMPTZ,
			arrival_time INTEGER,
			departure_date TIMESTAMPTZ,
			departure_time INTEGER,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_expiry TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}

	// Create trip_node_children table: one ordered parent/child edge
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trip_node_children (
			parent_id UUID NOT NULL,
			child_id UUID NOT NULL,
			child_index INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (parent_id, child_id),
			CONSTRAINT fk_trip_node_children_parent
				FOREIGN KEY(parent_id)
				REFERENCES trip_nodes(id)
				ON UPDATE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	// Create trip_node_users table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trip_node_users (
			node_id UUID NOT NULL,
			user_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (node_id, user_id),
			CONSTRAINT fk_trip_node_users_node
				FOREIGN KEY(node_id)
				REFERENCES trip_nodes(id)
				ON UPDATE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	// Create user_roles table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE user_roles (
			node_id UUID NOT NULL,
			user_id UUID NOT NULL,
			role VARCHAR(32) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (node_id, user_id),
			CONSTRAINT fk_user_roles_node
				FOREIGN KEY(node_id)
				REFERENCES trip_nodes(id)
				ON UPDATE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	// Create photos table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE photos (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			file_path VARCHAR(1024) NOT NULL,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_expiry TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_trip_nodes_is_deleted ON trip_nodes(is_deleted);`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_trip_node_children_child_id ON trip_node_children(child_id);`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_users_is_deleted ON users(is_deleted);`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_destinations_is_deleted ON destinations(is_deleted);`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_photos_owner_id ON photos(owner_id);`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_photos_is_deleted ON photos(is_deleted);`)
	return err
}

func downInitTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{
		"photos",
		"user_roles",
		"trip_node_users",
		"trip_node_children",
		"trip_nodes",
		"destinations",
		"users",
	} {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+table+`;`); err != nil {
			return err
		}
	}
	return nil
}
