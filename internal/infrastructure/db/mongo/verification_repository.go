package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/account-service/internal/core/domain"
)

const collectionVerifications = "verifications"

type VerificationRepository struct {
	coll *mongo.Collection
}

func NewVerificationRepository(db *mongo.Database) *VerificationRepository {
	return &VerificationRepository{coll: db.Collection(collectionVerifications)}
}

type mongoVerification struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Identifier string    `bson:"identifier"`
	Purpose    string    `bson:"purpose"`
	TokenHash  string    `bson:"token_hash"`
	ExpiresAt  time.Time `bson:"expires_at"`
	CreatedAt  int64     `bson:"created_at"`
}

func (r *VerificationRepository) Create(ctx context.Context, v *domain.Verification) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, mongoVerification{
		ID:         v.ID,
		UserID:     v.UserID,
		Identifier: v.Identifier,
		Purpose:    string(v.Purpose),
		TokenHash:  v.TokenHash,
		ExpiresAt:  v.ExpiresAt.UTC(),
		CreatedAt:  v.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

// Consume deletes the matching request in the same round trip that reads it,
// so two concurrent redemptions cannot both succeed.
func (r *VerificationRepository) Consume(ctx context.Context, tokenHash string, purpose domain.VerificationPurpose) (*domain.Verification, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mv mongoVerification
	err := r.coll.FindOneAndDelete(ctx, bson.M{"token_hash": tokenHash, "purpose": string(purpose)}).Decode(&mv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("consume verification: %w", err)
	}
	return &domain.Verification{
		ID:         mv.ID,
		UserID:     mv.UserID,
		Identifier: mv.Identifier,
		Purpose:    domain.VerificationPurpose(mv.Purpose),
		TokenHash:  mv.TokenHash,
		ExpiresAt:  mv.ExpiresAt.UTC(),
		CreatedAt:  unixToTime(mv.CreatedAt),
	}, nil
}

func (r *VerificationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token_hash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	return err
}
