package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Connect opens the database connection.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	zap.L().Info("database_migrations_applied", zap.Int("statements", len(migrations)))
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
            id SERIAL PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            display_name TEXT NOT NULL DEFAULT '',
            avatar_url TEXT,
            banner_url TEXT,
            role TEXT NOT NULL DEFAULT 'user',
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS chats (
            id SERIAL PRIMARY KEY,
            user1_id INT NOT NULL,
            user2_id INT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            UNIQUE(user1_id, user2_id),
            CHECK (user1_id < user2_id)
        );`,
	`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            chat_id INT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            sender_id INT NOT NULL,
            kind TEXT NOT NULL DEFAULT 'text',
            content TEXT NOT NULL DEFAULT '',
            attachment_url TEXT,
            attachment_name TEXT,
            attachment_size BIGINT,
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            reply_to_id INT REFERENCES messages(id) ON DELETE SET NULL,
            edited_at TIMESTAMPTZ,
            deleted_by_sender BOOLEAN DEFAULT FALSE,
            deleted_by_receiver BOOLEAN DEFAULT FALSE,
            deleted_for_all BOOLEAN DEFAULT FALSE,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS messages_chat_created_idx ON messages (chat_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS chat_visibility (
            chat_id INT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            hidden BOOLEAN DEFAULT TRUE,
            PRIMARY KEY(chat_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS groups (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            avatar_url TEXT,
            owner_id INT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            updated_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS group_members (
            group_id INT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            role TEXT NOT NULL DEFAULT 'member',
            joined_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(group_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS group_messages (
            id SERIAL PRIMARY KEY,
            group_id INT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            sender_id INT NOT NULL,
            kind TEXT NOT NULL DEFAULT 'text',
            content TEXT NOT NULL DEFAULT '',
            attachment_url TEXT,
            attachment_name TEXT,
            attachment_size BIGINT,
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            reply_to_id INT REFERENCES group_messages(id) ON DELETE SET NULL,
            edited_at TIMESTAMPTZ,
            deleted_for_all BOOLEAN DEFAULT FALSE,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS group_messages_group_created_idx ON group_messages (group_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS stories (
            id SERIAL PRIMARY KEY,
            user_id INT NOT NULL,
            media_url TEXT NOT NULL,
            media_type TEXT NOT NULL,
            duration_ms INT,
            caption TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ DEFAULT NOW(),
            expires_at TIMESTAMPTZ NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS stories_expires_idx ON stories (expires_at);`,
	`CREATE TABLE IF NOT EXISTS story_views (
            story_id INT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
            viewer_id INT NOT NULL,
            viewed_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(story_id, viewer_id)
        );`,
	`CREATE TABLE IF NOT EXISTS story_reactions (
            id SERIAL PRIMARY KEY,
            story_id INT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            emoji TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS reels (
            id SERIAL PRIMARY KEY,
            user_id INT NOT NULL,
            video_url TEXT NOT NULL,
            caption TEXT NOT NULL DEFAULT '',
            like_count INT NOT NULL DEFAULT 0,
            view_count INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS reel_likes (
            reel_id INT NOT NULL REFERENCES reels(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(reel_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS listings (
            id SERIAL PRIMARY KEY,
            seller_id INT NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
            currency TEXT NOT NULL DEFAULT 'USD',
            category TEXT NOT NULL DEFAULT '',
            condition TEXT NOT NULL DEFAULT 'good',
            images TEXT[] NOT NULL DEFAULT '{}',
            status TEXT NOT NULL DEFAULT 'active',
            created_at TIMESTAMPTZ DEFAULT NOW(),
            updated_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS circles (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            image_url TEXT,
            owner_id INT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS circle_members (
            circle_id INT NOT NULL REFERENCES circles(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            role TEXT NOT NULL DEFAULT 'member',
            can_post BOOLEAN NOT NULL DEFAULT TRUE,
            can_invite BOOLEAN NOT NULL DEFAULT FALSE,
            can_manage_posts BOOLEAN NOT NULL DEFAULT FALSE,
            can_start_calls BOOLEAN NOT NULL DEFAULT FALSE,
            joined_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(circle_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS circle_posts (
            id SERIAL PRIMARY KEY,
            circle_id INT NOT NULL REFERENCES circles(id) ON DELETE CASCADE,
            author_id INT NOT NULL,
            content TEXT NOT NULL DEFAULT '',
            media_url TEXT,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS live_streams (
            id SERIAL PRIMARY KEY,
            host_id INT NOT NULL,
            title TEXT NOT NULL,
            stream_key TEXT NOT NULL UNIQUE,
            status TEXT NOT NULL DEFAULT 'live',
            started_at TIMESTAMPTZ DEFAULT NOW(),
            ended_at TIMESTAMPTZ
        );`,
	`CREATE TABLE IF NOT EXISTS support_tickets (
            id SERIAL PRIMARY KEY,
            user_id INT NOT NULL,
            subject TEXT NOT NULL,
            description TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'open',
            priority TEXT NOT NULL DEFAULT 'medium',
            assignee_id INT,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            updated_at TIMESTAMPTZ DEFAULT NOW()
        );`,
}
