package users

const userColumns = `id, email, password_hash, display_name, phone_number, photo_url, email_verified, provider, provider_id, created_at, updated_at`

const (
	queryCreate = `
		INSERT INTO users (email, password_hash, email_verified)
		VALUES ($1, $2, FALSE)
		RETURNING ` + userColumns

	queryFindByEmail = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`

	queryFindByID = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	queryFindOrCreateByProvider = `
		INSERT INTO users (provider, provider_id, email, display_name, photo_url, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, provider_id)
		DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			photo_url = EXCLUDED.photo_url,
			updated_at = NOW()
		RETURNING ` + userColumns

	queryUpdateProfile = `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
			photo_url = COALESCE($3, photo_url),
			phone_number = COALESCE($4, phone_number),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	queryUpdateEmail = `
		UPDATE users
		SET email = $2, email_verified = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	queryUpdatePassword = `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`

	queryMarkEmailVerified = `
		UPDATE users
		SET email_verified = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
)
