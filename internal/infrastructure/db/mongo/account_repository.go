package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/account-service/internal/core/domain"
)

const collectionAccounts = "accounts"

type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(collectionAccounts)}
}

type mongoAccount struct {
	ID                string `bson:"_id"`
	UserID            string `bson:"user_id"`
	Provider          string `bson:"provider"`
	ProviderAccountID string `bson:"provider_account_id"`
	CreatedAt         int64  `bson:"created_at"`
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, mongoAccount{
		ID:                a.ID,
		UserID:            a.UserID,
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		CreatedAt:         a.CreatedAt.Unix(),
	})
	if err != nil {
		// A concurrent callback already linked this identity.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByProvider(ctx context.Context, provider, providerAccountID string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"provider": provider, "provider_account_id": providerAccountID})
}

func (r *AccountRepository) FindByUser(ctx context.Context, userID, provider string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "provider": provider})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ma mongoAccount
	if err := r.coll.FindOne(ctx, filter).Decode(&ma); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &domain.Account{
		ID:                ma.ID,
		UserID:            ma.UserID,
		Provider:          ma.Provider,
		ProviderAccountID: ma.ProviderAccountID,
		CreatedAt:         unixToTime(ma.CreatedAt),
	}, nil
}

func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "provider_account_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "provider", Value: 1}}},
	})
	return err
}
