package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reseller-dashboard/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const settingsCollection = "settings"

// SettingsRepository persists the single notification/scheduling settings document.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (*domain.NotificationSettings, error)
	SaveSettings(ctx context.Context, settings domain.NotificationSettings) error
	// UpdateDigestState records when the last alert digest went out and what it contained.
	UpdateDigestState(ctx context.Context, sentAt time.Time, fingerprint string) error
}

type mongoSettingsRepo struct {
	collection *mongo.Collection
}

func NewMongoSettingsRepo(db *mongo.Database) SettingsRepository {
	return &mongoSettingsRepo{collection: db.Collection(settingsCollection)}
}

func (r *mongoSettingsRepo) GetSettings(ctx context.Context) (*domain.NotificationSettings, error) {
	var settings domain.NotificationSettings
	err := r.collection.FindOne(ctx, bson.M{}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &domain.NotificationSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings writes user-editable fields only; digest bookkeeping is left to
// UpdateDigestState so a concurrent digest is never rolled back.
func (r *mongoSettingsRepo) SaveSettings(ctx context.Context, settings domain.NotificationSettings) error {
	doc, err := settingsUpdateDoc(settings)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{}, bson.M{"$set": doc}, opts); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

var digestStateFields = []string{"last_digest_at", "last_digest_fingerprint"}

func settingsUpdateDoc(settings domain.NotificationSettings) (bson.M, error) {
	raw, err := bson.Marshal(settings)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for _, f := range digestStateFields {
		delete(doc, f)
	}
	return doc, nil
}

func (r *mongoSettingsRepo) UpdateDigestState(ctx context.Context, sentAt time.Time, fingerprint string) error {
	update := bson.M{"$set": bson.M{
		"last_digest_at":          sentAt,
		"last_digest_fingerprint": fingerprint,
	}}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{}, update, opts); err != nil {
		return fmt.Errorf("update digest state: %w", err)
	}
	return nil
}
