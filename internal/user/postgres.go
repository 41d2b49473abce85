package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, medipass_id, full_name, mobile_number, email,
        password_hash, pin_hash, date_of_birth, gender,
        street, city, state, pincode, blood_group, emergency_contact, role,
        email_verified, mobile_verified, login_attempts, lock_until, last_login,
        refresh_token, otp_code, otp_expires_at, otp_attempts, created_at, updated_at`

// PostgresRepository stores credential records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a record. Unique-index violations on mobile number or
// email surface as ErrDuplicate; concurrent registrations race on the
// constraint, not on application locks.
func (r *PostgresRepository) Create(ctx context.Context, u User) error {
	userID, err := uuid.Parse(u.ID)
	if err != nil {
		return err
	}
	var otpCode *string
	var otpExpiresAt *time.Time
	otpAttempts := 0
	if u.OTP != nil {
		otpCode = &u.OTP.Code
		otpExpiresAt = &u.OTP.ExpiresAt
		otpAttempts = u.OTP.Attempts
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''),
                $6, $7, $8, $9,
                $10, $11, $12, $13, NULLIF($14, ''), $15, $16,
                $17, $18, $19, $20, $21,
                $22, $23, $24, $25, $26, $27)`,
		userID, u.MedipassID, u.FullName, u.MobileNumber, u.Email,
		u.PasswordHash, u.PINHash, u.DateOfBirth, u.Gender,
		u.Address.Street, u.Address.City, u.Address.State, u.Address.Pincode,
		u.BloodGroup, u.EmergencyContact, string(u.Role),
		u.EmailVerified, u.MobileVerified, u.LoginAttempts, u.LockUntil, u.LastLogin,
		u.RefreshToken, otpCode, otpExpiresAt, otpAttempts, u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// FindByID fetches a record by primary key.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.findOne(ctx, `WHERE id = $1`, userID)
}

// FindByMobile fetches a record by its unique mobile number.
func (r *PostgresRepository) FindByMobile(ctx context.Context, mobile string) (User, error) {
	return r.findOne(ctx, `WHERE mobile_number = $1`, mobile)
}

// FindByEmail fetches a record by its unique (sparse) email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

// FindByMedipassID fetches a record by the public identifier.
func (r *PostgresRepository) FindByMedipassID(ctx context.Context, medipassID string) (User, error) {
	return r.findOne(ctx, `WHERE medipass_id = $1`, medipassID)
}

// Update persists every mutable field of the record.
func (r *PostgresRepository) Update(ctx context.Context, u User) error {
	userID, err := uuid.Parse(u.ID)
	if err != nil {
		return ErrNotFound
	}
	var otpCode *string
	var otpExpiresAt *time.Time
	otpAttempts := 0
	if u.OTP != nil {
		otpCode = &u.OTP.Code
		otpExpiresAt = &u.OTP.ExpiresAt
		otpAttempts = u.OTP.Attempts
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET
        password_hash = $2, pin_hash = $3,
        email_verified = $4, mobile_verified = $5,
        login_attempts = $6, lock_until = $7, last_login = $8,
        refresh_token = $9, otp_code = $10, otp_expires_at = $11, otp_attempts = $12,
        updated_at = now()
        WHERE id = $1`,
		userID, u.PasswordHash, u.PINHash,
		u.EmailVerified, u.MobileVerified,
		u.LoginAttempts, u.LockUntil, u.LastLogin,
		u.RefreshToken, otpCode, otpExpiresAt, otpAttempts)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, arg)

	var (
		u            User
		id           uuid.UUID
		email        *string
		bloodGroup   *string
		role         string
		otpCode      *string
		otpExpiresAt *time.Time
		otpAttempts  int
	)
	err := row.Scan(&id, &u.MedipassID, &u.FullName, &u.MobileNumber, &email,
		&u.PasswordHash, &u.PINHash, &u.DateOfBirth, &u.Gender,
		&u.Address.Street, &u.Address.City, &u.Address.State, &u.Address.Pincode,
		&bloodGroup, &u.EmergencyContact, &role,
		&u.EmailVerified, &u.MobileVerified, &u.LoginAttempts, &u.LockUntil, &u.LastLogin,
		&u.RefreshToken, &otpCode, &otpExpiresAt, &otpAttempts, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	u.ID = id.String()
	if email != nil {
		u.Email = *email
	}
	if bloodGroup != nil {
		u.BloodGroup = *bloodGroup
	}
	u.Role = Role(role)
	if otpCode != nil && otpExpiresAt != nil {
		u.OTP = &Challenge{Code: *otpCode, ExpiresAt: *otpExpiresAt, Attempts: otpAttempts}
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
