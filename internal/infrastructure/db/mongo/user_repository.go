package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medibook/appointment-api/internal/core/domain"
)

const userCollection = "users"

type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(userCollection)}
}

// EnsureIndexes creates the unique email index the registration race relies
// on. Call once at startup.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "verification_token_hash", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "reset_token_hash", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

type mongoUser struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	FirstName             string             `bson:"first_name"`
	LastName              string             `bson:"last_name"`
	Email                 string             `bson:"email"`
	PasswordHash          string             `bson:"password_hash,omitempty"`
	CredentialKind        string             `bson:"credential_kind"`
	Gender                string             `bson:"gender"`
	IsDoctor              bool               `bson:"is_doctor"`
	DoctorID              string             `bson:"doctor_id,omitempty"`
	ProfilePicture        string             `bson:"profile_picture,omitempty"`
	EmailVerified         bool               `bson:"email_verified"`
	VerificationTokenHash string             `bson:"verification_token_hash,omitempty"`
	VerificationExpiresAt int64              `bson:"verification_expires_at,omitempty"`
	ResetTokenHash        string             `bson:"reset_token_hash,omitempty"`
	ResetExpiresAt        int64              `bson:"reset_expires_at,omitempty"`
	PasswordChangedAt     int64              `bson:"password_changed_at,omitempty"`
	CreatedAt             int64              `bson:"created_at"`
	UpdatedAt             int64              `bson:"updated_at"`
}

func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc := toMongoUser(user)

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) FindByVerificationToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"verification_token_hash": tokenHash})
}

func (r *MongoUserRepository) FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"reset_token_hash": tokenHash})
}

func (r *MongoUserRepository) LinkDoctor(ctx context.Context, userID, doctorID string) error {
	return r.updateOne(ctx, userID, bson.M{
		"$set": bson.M{
			"doctor_id":  doctorID,
			"updated_at": time.Now().Unix(),
		},
	})
}

func (r *MongoUserRepository) MarkVerified(ctx context.Context, userID string) error {
	return r.updateOne(ctx, userID, bson.M{
		"$set": bson.M{
			"email_verified": true,
			"updated_at":     time.Now().Unix(),
		},
		"$unset": bson.M{
			"verification_token_hash": "",
			"verification_expires_at": "",
		},
	})
}

func (r *MongoUserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	return r.updateOne(ctx, userID, bson.M{
		"$set": bson.M{
			"reset_token_hash": tokenHash,
			"reset_expires_at": expiresAt.Unix(),
			"updated_at":       time.Now().Unix(),
		},
	})
}

func (r *MongoUserRepository) ClearResetToken(ctx context.Context, userID string) error {
	return r.updateOne(ctx, userID, bson.M{
		"$set": bson.M{
			"updated_at": time.Now().Unix(),
		},
		"$unset": bson.M{
			"reset_token_hash": "",
			"reset_expires_at": "",
		},
	})
}

func (r *MongoUserRepository) CompletePasswordReset(ctx context.Context, userID, passwordHash string) error {
	now := time.Now().Unix()
	return r.updateOne(ctx, userID, bson.M{
		"$set": bson.M{
			"password_hash":       passwordHash,
			"credential_kind":     string(domain.CredentialPassword),
			"email_verified":      true,
			"password_changed_at": now,
			"updated_at":          now,
		},
		"$unset": bson.M{
			"reset_token_hash": "",
			"reset_expires_at": "",
		},
	})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return toDomainUser(&mu), nil
}

func (r *MongoUserRepository) updateOne(ctx context.Context, userID string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		Email:                 u.Email,
		PasswordHash:          u.PasswordHash,
		CredentialKind:        string(u.CredentialKind),
		Gender:                string(u.Gender),
		IsDoctor:              u.IsDoctor,
		DoctorID:              u.DoctorID,
		ProfilePicture:        u.ProfilePicture,
		EmailVerified:         u.EmailVerified,
		VerificationTokenHash: u.VerificationTokenHash,
		VerificationExpiresAt: timeToUnix(u.VerificationExpiresAt),
		ResetTokenHash:        u.ResetTokenHash,
		ResetExpiresAt:        timeToUnix(u.ResetExpiresAt),
		PasswordChangedAt:     timeToUnix(u.PasswordChangedAt),
		CreatedAt:             u.CreatedAt.Unix(),
		UpdatedAt:             u.UpdatedAt.Unix(),
	}
}

func toDomainUser(mu *mongoUser) *domain.User {
	return &domain.User{
		ID:                    mu.ID.Hex(),
		FirstName:             mu.FirstName,
		LastName:              mu.LastName,
		Email:                 mu.Email,
		PasswordHash:          mu.PasswordHash,
		CredentialKind:        domain.CredentialKind(mu.CredentialKind),
		Gender:                domain.Gender(mu.Gender),
		IsDoctor:              mu.IsDoctor,
		DoctorID:              mu.DoctorID,
		ProfilePicture:        mu.ProfilePicture,
		EmailVerified:         mu.EmailVerified,
		VerificationTokenHash: mu.VerificationTokenHash,
		VerificationExpiresAt: unixToTime(mu.VerificationExpiresAt),
		ResetTokenHash:        mu.ResetTokenHash,
		ResetExpiresAt:        unixToTime(mu.ResetExpiresAt),
		PasswordChangedAt:     unixToTime(mu.PasswordChangedAt),
		CreatedAt:             unixToTime(mu.CreatedAt),
		UpdatedAt:             unixToTime(mu.UpdatedAt),
	}
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
