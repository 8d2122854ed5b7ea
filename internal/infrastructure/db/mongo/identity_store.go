package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/shopline/commerce-api/internal/core/domain"
)

const (
	usersCollection = "users"
	rolesCollection = "roles"
)

// IdentityStore implements ports.IdentityStore on two collections. Uniqueness
// of users.email and roles.name is enforced by the indexes EnsureIndexes creates.
type IdentityStore struct {
	db    *mongo.Database
	users *mongo.Collection
	roles *mongo.Collection
}

func NewIdentityStore(db *mongo.Database) *IdentityStore {
	return &IdentityStore{
		db:    db,
		users: db.Collection(usersCollection),
		roles: db.Collection(rolesCollection),
	}
}

type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	FirstName    string             `bson:"first_name"`
	LastName     string             `bson:"last_name"`
	RoleID       primitive.ObjectID `bson:"role_id"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

type mongoRole struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	CreatedAt int64              `bson:"created_at"`
}

// EnsureIndexes creates the unique indexes the store relies on. It is idempotent.
func (s *IdentityStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
	}); err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	if _, err := s.roles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_roles_name"),
	}); err != nil {
		return fmt.Errorf("roles index: %w", err)
	}
	return nil
}

func (s *IdentityStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *IdentityStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	roleID, err := primitive.ObjectIDFromHex(user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("insert user: role id %q: %w", user.RoleID, err)
	}

	doc := fromDomainUser(user)
	doc.ID = primitive.NewObjectID()
	doc.RoleID = roleID

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := toDomainUser(doc, user.Role)
	return created, nil
}

func (s *IdentityStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var mu mongoUser
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	var mr mongoRole
	if err := s.roles.FindOne(ctx, bson.M{"_id": mu.RoleID}).Decode(&mr); err != nil {
		return nil, fmt.Errorf("find user role %s: %w", mu.RoleID.Hex(), err)
	}

	return toDomainUser(mu, toDomainRole(mr)), nil
}

func (s *IdentityStore) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	var mr mongoRole
	if err := s.roles.FindOne(ctx, bson.M{"name": name}).Decode(&mr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return toDomainRole(mr), nil
}

func (s *IdentityStore) UpsertRole(ctx context.Context, name string) (*domain.Role, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	update := bson.M{"$setOnInsert": bson.M{"name": name, "created_at": time.Now().UTC().Unix()}}

	var mr mongoRole
	err := s.roles.FindOneAndUpdate(ctx, bson.M{"name": name}, update, opts).Decode(&mr)
	if err != nil {
		// Two concurrent upserts can both miss and race on the unique index.
		if mongo.IsDuplicateKeyError(err) {
			return s.FindRoleByName(ctx, name)
		}
		return nil, fmt.Errorf("upsert role: %w", err)
	}
	return toDomainRole(mr), nil
}

func fromDomainUser(u *domain.User) mongoUser {
	return mongoUser{
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		CreatedAt:    u.CreatedAt.Unix(),
		UpdatedAt:    u.UpdatedAt.Unix(),
	}
}

func toDomainUser(mu mongoUser, role *domain.Role) *domain.User {
	return &domain.User{
		ID:           mu.ID.Hex(),
		Email:        mu.Email,
		PasswordHash: mu.PasswordHash,
		FirstName:    mu.FirstName,
		LastName:     mu.LastName,
		RoleID:       mu.RoleID.Hex(),
		Role:         role,
		CreatedAt:    unixToTime(mu.CreatedAt),
		UpdatedAt:    unixToTime(mu.UpdatedAt),
	}
}

func toDomainRole(mr mongoRole) *domain.Role {
	return &domain.Role{ID: mr.ID.Hex(), Name: mr.Name}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
