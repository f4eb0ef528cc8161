package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartsouq/smartsouq_backend/config"
	"github.com/smartsouq/smartsouq_backend/models"
)

// AgentStore is the persistence boundary for affiliate agents.
type AgentStore interface {
	Create(ctx context.Context, agent *models.Agent) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Agent, error)
	GetByEmail(ctx context.Context, email string) (*models.Agent, error)
	GetByReferralCode(ctx context.Context, code string) (*models.Agent, error)
	Update(ctx context.Context, agent *models.Agent) error
}

// ClickStore is the persistence boundary for tracked clicks.
type ClickStore interface {
	Create(ctx context.Context, click *models.Click) error
	GetByClickID(ctx context.Context, clickID string) (*models.Click, error)
	Update(ctx context.Context, click *models.Click) error
	ListByAgent(ctx context.Context, agentID primitive.ObjectID, limit int64) ([]models.Click, error)
}

// CommissionStore is the persistence boundary for earned commissions.
type CommissionStore interface {
	Create(ctx context.Context, commission *models.Commission) error
	GetByClickID(ctx context.Context, clickID string) (*models.Commission, error)
	ListByAgent(ctx context.Context, agentID primitive.ObjectID, limit int64) ([]models.Commission, error)
}

type AgentRepository struct {
	collection *mongo.Collection
}

func NewAgentRepository(db *mongo.Client) *AgentRepository {
	return &AgentRepository{collection: config.GetCollection(db, "agents")}
}

func (r *AgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	if agent.ID.IsZero() {
		agent.ID = primitive.NewObjectID()
	}
	agent.CreatedAt = time.Now()
	agent.UpdatedAt = agent.CreatedAt
	_, err := r.collection.InsertOne(ctx, agent)
	return err
}

func (r *AgentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Agent, error) {
	var agent models.Agent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&agent)
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *AgentRepository) GetByEmail(ctx context.Context, email string) (*models.Agent, error) {
	var agent models.Agent
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&agent)
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *AgentRepository) GetByReferralCode(ctx context.Context, code string) (*models.Agent, error) {
	var agent models.Agent
	err := r.collection.FindOne(ctx, bson.M{"referralCode": code}).Decode(&agent)
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *AgentRepository) Update(ctx context.Context, agent *models.Agent) error {
	agent.UpdatedAt = time.Now()
	filter := bson.M{"_id": agent.ID}
	_, err := r.collection.ReplaceOne(ctx, filter, agent)
	return err
}

type ClickRepository struct {
	collection *mongo.Collection
}

func NewClickRepository(db *mongo.Client) *ClickRepository {
	return &ClickRepository{collection: config.GetCollection(db, "clicks")}
}

func (r *ClickRepository) Create(ctx context.Context, click *models.Click) error {
	if click.ID.IsZero() {
		click.ID = primitive.NewObjectID()
	}
	click.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, click)
	return err
}

func (r *ClickRepository) GetByClickID(ctx context.Context, clickID string) (*models.Click, error) {
	var click models.Click
	err := r.collection.FindOne(ctx, bson.M{"clickId": clickID}).Decode(&click)
	if err != nil {
		return nil, err
	}
	return &click, nil
}

func (r *ClickRepository) Update(ctx context.Context, click *models.Click) error {
	filter := bson.M{"clickId": click.ClickID}
	_, err := r.collection.ReplaceOne(ctx, filter, click)
	return err
}

func (r *ClickRepository) ListByAgent(ctx context.Context, agentID primitive.ObjectID, limit int64) ([]models.Click, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"agentId": agentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var clicks []models.Click
	if err := cursor.All(ctx, &clicks); err != nil {
		return nil, err
	}
	return clicks, nil
}

type CommissionRepository struct {
	collection *mongo.Collection
}

func NewCommissionRepository(db *mongo.Client) *CommissionRepository {
	return &CommissionRepository{collection: config.GetCollection(db, "commissions")}
}

func (r *CommissionRepository) Create(ctx context.Context, commission *models.Commission) error {
	if commission.ID.IsZero() {
		commission.ID = primitive.NewObjectID()
	}
	commission.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, commission)
	return err
}

func (r *CommissionRepository) GetByClickID(ctx context.Context, clickID string) (*models.Commission, error) {
	var commission models.Commission
	err := r.collection.FindOne(ctx, bson.M{"clickId": clickID}).Decode(&commission)
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *CommissionRepository) ListByAgent(ctx context.Context, agentID primitive.ObjectID, limit int64) ([]models.Commission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"agentId": agentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var commissions []models.Commission
	if err := cursor.All(ctx, &commissions); err != nil {
		return nil, err
	}
	return commissions, nil
}
