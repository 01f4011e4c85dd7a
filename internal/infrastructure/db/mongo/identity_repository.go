package mongo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/core/ports"
)

const collectionIdentities = "identities"

// IdentityRepository stores identities as documents with a free-form metadata
// sub-document, keyed by the uuid assigned at account creation.
type IdentityRepository struct {
	col *mongo.Collection
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{col: db.Collection(collectionIdentities)}
}

type identityMetadata struct {
	Role  string `bson:"role"`
	Name  string `bson:"name,omitempty"`
	Goal  string `bson:"goal,omitempty"`
	Notes string `bson:"notes,omitempty"`
}

type identityDoc struct {
	ID              string           `bson:"_id"`
	Email           string           `bson:"email"`
	PasswordHash    string           `bson:"password_hash"`
	CredentialState string           `bson:"credential_state"`
	Metadata        identityMetadata `bson:"metadata"`
	CreatedAt       time.Time        `bson:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at"`
}

func toDoc(rec *domain.IdentityRecord) identityDoc {
	return identityDoc{
		ID:              rec.ID,
		Email:           rec.Email,
		PasswordHash:    rec.PasswordHash,
		CredentialState: string(rec.CredentialState),
		Metadata: identityMetadata{
			Role:  string(rec.Role),
			Name:  rec.Name,
			Goal:  rec.Goal,
			Notes: rec.Notes,
		},
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func (d identityDoc) toRecord() *domain.IdentityRecord {
	return &domain.IdentityRecord{
		ID:              d.ID,
		Email:           d.Email,
		CredentialState: domain.CredentialState(d.CredentialState),
		Role:            domain.Role(d.Metadata.Role),
		Name:            d.Metadata.Name,
		Goal:            d.Metadata.Goal,
		Notes:           d.Metadata.Notes,
		PasswordHash:    d.PasswordHash,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

// Insert adds a new identity. The unique email index turns a duplicate into
// domain.ErrIdentityExists.
func (r *IdentityRepository) Insert(ctx context.Context, rec *domain.IdentityRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toDoc(rec)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrIdentityExists
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.IdentityRecord, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.IdentityRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc identityDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.toRecord(), nil
}

// UpdateMetadata merges the patch into the stored document. Only fields set on the
// patch are written.
func (r *IdentityRepository) UpdateMetadata(ctx context.Context, id string, patch domain.MetadataPatch) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Role != nil {
		set["metadata.role"] = string(*patch.Role)
	}
	if patch.Name != nil {
		set["metadata.name"] = *patch.Name
	}
	if patch.Goal != nil {
		set["metadata.goal"] = *patch.Goal
	}
	if patch.Notes != nil {
		set["metadata.notes"] = *patch.Notes
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}

	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrIdentityExists
		}
		return fmt.Errorf("update identity: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// All streams identities ordered by creation time. Each range opens a new cursor.
func (r *IdentityRepository) All(ctx context.Context) iter.Seq2[*domain.IdentityRecord, error] {
	return func(yield func(*domain.IdentityRecord, error) bool) {
		opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
		cur, err := r.col.Find(ctx, bson.M{}, opts)
		if err != nil {
			yield(nil, fmt.Errorf("list identities: %w", err))
			return
		}
		defer cur.Close(context.WithoutCancel(ctx))

		for cur.Next(ctx) {
			var doc identityDoc
			if err := cur.Decode(&doc); err != nil {
				yield(nil, fmt.Errorf("decode identity: %w", err))
				return
			}
			if !yield(doc.toRecord(), nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(nil, fmt.Errorf("list identities: %w", err))
		}
	}
}

func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the identities collection.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "metadata.role", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
