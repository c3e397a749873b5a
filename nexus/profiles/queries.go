package profiles

const (
	queryGet = `
		SELECT user_id, username, provider, created_at, last_login, login_history, is_new_user
		FROM profiles
		WHERE user_id = $1
	`

	querySet = `
		INSERT INTO profiles (user_id, username, provider, created_at, last_login, login_history, is_new_user)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id)
		DO UPDATE SET
			username = EXCLUDED.username,
			provider = EXCLUDED.provider,
			last_login = EXCLUDED.last_login,
			login_history = EXCLUDED.login_history,
			is_new_user = EXCLUDED.is_new_user
	`

	queryUpdate = `
		UPDATE profiles
		SET username = COALESCE($2, username),
			provider = COALESCE($3, provider),
			is_new_user = COALESCE($4, is_new_user)
		WHERE user_id = $1
	`

	queryUsernameTaken = `
		SELECT EXISTS (
			SELECT 1 FROM profiles WHERE username = $1
		)
	`

	// appends the event only when an identical one is not already present
	// (jsonb containment on a single-element array) and records it as the
	// most recent login either way
	queryAppendLoginEvent = `
		UPDATE profiles
		SET login_history = CASE
				WHEN login_history @> $2::jsonb THEN login_history
				ELSE login_history || $2::jsonb
			END,
			last_login = $3::jsonb
		WHERE user_id = $1
	`
)
