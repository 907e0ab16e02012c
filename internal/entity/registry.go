// Package entity defines the static registry of syncable entity types.
//
// Every other component (applier, conflict detector, pull serializer,
// status counter) consults the registry instead of hardcoding table or
// field names. The registry is a compile-time map; adding an entity type
// means adding a Spec here and a table to the migrations.
package entity

// Kind classifies a field's semantic type. It drives both directions of
// payload conversion: client payload -> stored value, and stored value ->
// pull wire representation.
type Kind int

const (
	KindString Kind = iota
	KindID          // UUID reference, stored as TEXT
	KindDecimal     // exact decimal, stored as canonical TEXT
	KindInt
	KindFloat
	KindBool // stored as INTEGER 0/1
	KindDate // "2006-01-02"
	KindTime // "15:04:05"
	KindTimestamp
	KindStringList // JSON array of strings, stored as TEXT
	KindJSON       // arbitrary JSON document, stored as TEXT
)

// Field describes one syncable column of an entity table.
type Field struct {
	Name string
	Kind Kind

	// Ref names the entity type a KindID field points at, empty for
	// plain identifier fields (e.g. external vault IDs).
	Ref string

	// Required marks foreign keys that must resolve for the row to be
	// valid. A required reference to a defaultable type (book, account,
	// category) is filled with the user's default entity when the client
	// omits it.
	Required bool
}

// Spec describes one entity type: its table and its syncable fields.
// All tables carry id, user_id, created_at and updated_at alongside the
// declared fields.
type Spec struct {
	Type   string
	Table  string
	Fields []Field
}

// Field returns the named field declaration, if present.
func (s Spec) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Entity type tags as sent by clients.
const (
	TypeBook             = "book"
	TypeBookMember       = "book_member"
	TypeAccount          = "account"
	TypeCategory         = "category"
	TypeBudget           = "budget"
	TypeFamilyBudget     = "family_budget"
	TypeExpenseTarget    = "expense_target"
	TypeTransaction      = "transaction"
	TypeTransactionSplit = "transaction_split"
	TypeSplitParticipant = "split_participant"
	TypeSavingGoal       = "saving_goal"
	TypeGoalContribution = "goal_contribution"
	TypeResourcePool     = "resource_pool"
	TypeConsumptionRecord = "consumption_record"
	TypeMoneyAgeSnapshot = "money_age_snapshot"
	TypeMoneyAgeConfig   = "money_age_config"
	TypeGeoFence         = "geo_fence"
	TypeFrequentLocation = "frequent_location"
	TypeUserHomeLocation = "user_home_location"
)

// applyOrder is the fixed dependency order for replaying a push batch.
// Later types reference earlier ones, so processing in this order makes
// foreign keys resolve without a generic dependency solver: books first,
// then the book-scoped planning entities, then transactions, then the
// transaction-derived entities, and finally the standalone location set.
var applyOrder = []string{
	TypeBook,
	TypeBookMember,
	TypeAccount,
	TypeCategory,
	TypeBudget,
	TypeFamilyBudget,
	TypeExpenseTarget,
	TypeTransaction,
	TypeTransactionSplit,
	TypeSplitParticipant,
	TypeSavingGoal,
	TypeGoalContribution,
	TypeResourcePool,
	TypeConsumptionRecord,
	TypeMoneyAgeSnapshot,
	TypeMoneyAgeConfig,
	TypeGeoFence,
	TypeFrequentLocation,
	TypeUserHomeLocation,
}

var registry = map[string]Spec{
	TypeBook: {
		Type:  TypeBook,
		Table: "books",
		Fields: []Field{
			{Name: "name", Kind: KindString},
			{Name: "description", Kind: KindString},
			{Name: "icon", Kind: KindString},
			{Name: "cover_image", Kind: KindString},
			{Name: "book_type", Kind: KindInt},
			{Name: "is_default", Kind: KindBool},
			{Name: "is_archived", Kind: KindBool},
		},
	},
	TypeBookMember: {
		Type:  TypeBookMember,
		Table: "book_members",
		Fields: []Field{
			{Name: "book_id", Kind: KindID, Ref: TypeBook, Required: true},
			{Name: "role", Kind: KindInt},
			{Name: "joined_at", Kind: KindTimestamp},
		},
	},
	TypeAccount: {
		Type:  TypeAccount,
		Table: "accounts",
		Fields: []Field{
			{Name: "name", Kind: KindString},
			{Name: "account_type", Kind: KindInt},
			{Name: "icon", Kind: KindString},
			{Name: "balance", Kind: KindDecimal},
			{Name: "credit_limit", Kind: KindDecimal},
			{Name: "bill_day", Kind: KindInt},
			{Name: "repay_day", Kind: KindInt},
			{Name: "currency", Kind: KindString},
			{Name: "is_default", Kind: KindBool},
			{Name: "is_active", Kind: KindBool},
		},
	},
	TypeCategory: {
		Type:  TypeCategory,
		Table: "categories",
		Fields: []Field{
			{Name: "parent_id", Kind: KindID, Ref: TypeCategory},
			{Name: "name", Kind: KindString},
			{Name: "icon", Kind: KindString},
			{Name: "category_type", Kind: KindInt},
			{Name: "sort_order", Kind: KindInt},
			{Name: "is_system", Kind: KindBool},
		},
	},
	TypeBudget: {
		Type:  TypeBudget,
		Table: "budgets",
		Fields: []Field{
			{Name: "book_id", Kind: KindID, Ref: TypeBook, Required: true},
			{Name: "category_id", Kind: KindID, Ref: TypeCategory},
			{Name: "name", Kind: KindString},
			{Name: "amount", Kind: KindDecimal},
			{Name: "budget_type", Kind: KindInt},
			{Name: "year", Kind: KindInt},
			{Name: "month", Kind: KindInt},
			{Name: "is_active", Kind: KindBool},
		},
	},
	TypeFamilyBudget: {
		Type:  TypeFamilyBudget,
		Table: "family_budgets",
		Fields: []Field{
			{Name: "book_id", Kind: KindID, Ref: TypeBook, Required: true},
			{Name: "year", Kind: KindInt},
			{Name: "month", Kind: KindInt},
			{Name: "total_amount", Kind: KindDecimal},
			{Name: "alert_threshold", Kind: KindInt},
		},
	},
	TypeExpenseTarget: {
		Type:  TypeExpenseTarget,
		Table: "expense_targets",
		Fields: []Field{
			{Name: "book_id", Kind: KindID, Ref: TypeBook, Required: true},
			{Name: "category_id", Kind: KindID, Ref: TypeCategory},
			{Name: "name", Kind: KindString},
			{Name: "description", Kind: KindString},
			{Name: "max_amount", Kind: KindDecimal},
			{Name: "year", Kind: KindInt},
			{Name: "month", Kind: KindInt},
			{Name: "icon_code", Kind: KindInt},
			{Name: "color_value", Kind: KindInt},
			{Name: "alert_threshold", Kind: KindInt},
			{Name: "enable_notifications", Kind: KindBool},
			{Name: "is_active", Kind: KindBool},
		},
	},
	TypeTransaction: {
		Type:  TypeTransaction,
		Table: "transactions",
		Fields: []Field{
			{Name: "book_id", Kind: KindID, Ref: TypeBook, Required: true},
			{Name: "account_id", Kind: KindID, Ref: TypeAccount, Required: true},
			{Name: "target_account_id", Kind: KindID, Ref: TypeAccount},
			{Name: "category_id", Kind: KindID, Ref: TypeCategory, Required: true},
			{Name: "transaction_type", Kind: KindInt},
			{Name: "amount", Kind: KindDecimal},
			{Name: "fee", Kind: KindDecimal},
			{Name: "transaction_date", Kind: KindDate},
			{Name: "transaction_time", Kind: KindTime},
			{Name: "note", Kind: KindString},
			{Name: "tags", Kind: KindStringList},
			{Name: "images", Kind: KindStringList},
			{Name: "location", Kind: KindString},
			{Name: "location_latitude", Kind: KindDecimal},
			{Name: "location_longitude", Kind: KindDecimal},
			{Name: "location_place_name", Kind: KindString},
			{Name: "location_address", Kind: KindString},
			{Name: "location_city", Kind: KindString},
			{Name: "location_district", Kind: KindString},
			{Name: "location_type", Kind: KindInt},
			{Name: "location_poi_id", Kind: KindString},
			{Name: "is_reimbursable", Kind: KindBool},
			{Name: "is_reimbursed", Kind: KindBool},
			{Name: "is_exclude_stats", Kind: KindBool},
			{Name: "source", Kind: KindInt},
			{Name: "ai_confidence", Kind: KindDecimal},
		},
	},
	TypeTransactionSplit: {
		Type:  TypeTransactionSplit,
		Table: "transaction_splits",
		Fields: []Field{
			{Name: "transaction_id", Kind: KindID, Ref: TypeTransaction, Required: true},
			{Name: "split_type", Kind: KindInt},
			{Name: "status", Kind: KindInt},
			{Name: "total_amount", Kind: KindDecimal},
			{Name: "settled_amount", Kind: KindDecimal},
			{Name: "settled_at", Kind: KindTimestamp},
		},
	},
	TypeSplitParticipant: {
		Type:  TypeSplitParticipant,
		Table: "split_participants",
		Fields: []Field{
			{Name: "split_id", Kind: KindID, Ref: TypeTransactionSplit, Required: true},
			{Name: "amount", Kind: KindDecimal},
			{Name: "percentage", Kind: KindDecimal},
			{Name: "shares", Kind: KindInt},
			{Name: "is_payer", Kind: KindBool},
			{Name: "is_settled", Kind: KindBool},
			{Name: "settled_at", Kind: KindTimestamp},
		},
	},
	TypeSavingGoal: {
		Type:  TypeSavingGoal,
		Table: "saving_goals",
		Fields: []Field{
			{Name: "book_id", Kind: KindID, Ref: TypeBook, Required: true},
			{Name: "name", Kind: KindString},
			{Name: "description", Kind: KindString},
			{Name: "icon", Kind: KindString},
			{Name: "target_amount", Kind: KindDecimal},
			{Name: "current_amount", Kind: KindDecimal},
			{Name: "deadline", Kind: KindTimestamp},
			{Name: "status", Kind: KindInt},
			{Name: "completed_at", Kind: KindTimestamp},
		},
	},
	TypeGoalContribution: {
		Type:  TypeGoalContribution,
		Table: "goal_contributions",
		Fields: []Field{
			{Name: "goal_id", Kind: KindID, Ref: TypeSavingGoal, Required: true},
			{Name: "amount", Kind: KindDecimal},
			{Name: "note", Kind: KindString},
		},
	},
	TypeResourcePool: {
		Type:  TypeResourcePool,
		Table: "resource_pools",
		Fields: []Field{
			{Name: "book_id", Kind: KindID, Ref: TypeBook, Required: true},
			{Name: "income_transaction_id", Kind: KindID, Ref: TypeTransaction, Required: true},
			{Name: "account_id", Kind: KindID, Ref: TypeAccount, Required: true},
			{Name: "income_category_id", Kind: KindID, Ref: TypeCategory, Required: true},
			{Name: "original_amount", Kind: KindDecimal},
			{Name: "remaining_amount", Kind: KindDecimal},
			{Name: "consumed_amount", Kind: KindDecimal},
			{Name: "income_date", Kind: KindDate},
			{Name: "first_consumed_date", Kind: KindDate},
			{Name: "last_consumed_date", Kind: KindDate},
			{Name: "fully_consumed_date", Kind: KindDate},
			{Name: "is_fully_consumed", Kind: KindBool},
			{Name: "consumption_count", Kind: KindInt},
		},
	},
	TypeConsumptionRecord: {
		Type:  TypeConsumptionRecord,
		Table: "consumption_records",
		Fields: []Field{
			{Name: "resource_pool_id", Kind: KindID, Ref: TypeResourcePool, Required: true},
			{Name: "expense_transaction_id", Kind: KindID, Ref: TypeTransaction, Required: true},
			{Name: "book_id", Kind: KindID, Ref: TypeBook, Required: true},
			{Name: "consumed_amount", Kind: KindDecimal},
			{Name: "consumption_date", Kind: KindDate},
			{Name: "money_age_days", Kind: KindInt},
		},
	},
	TypeMoneyAgeSnapshot: {
		Type:  TypeMoneyAgeSnapshot,
		Table: "money_age_snapshots",
		Fields: []Field{
			{Name: "book_id", Kind: KindID, Ref: TypeBook, Required: true},
			{Name: "snapshot_date", Kind: KindDate},
			{Name: "snapshot_type", Kind: KindString},
			{Name: "avg_money_age", Kind: KindDecimal},
			{Name: "median_money_age", Kind: KindInt},
			{Name: "min_money_age", Kind: KindInt},
			{Name: "max_money_age", Kind: KindInt},
			{Name: "health_level", Kind: KindString},
			{Name: "health_count", Kind: KindInt},
			{Name: "warning_count", Kind: KindInt},
			{Name: "danger_count", Kind: KindInt},
			{Name: "total_resource_pools", Kind: KindInt},
			{Name: "active_resource_pools", Kind: KindInt},
			{Name: "total_remaining_amount", Kind: KindDecimal},
			{Name: "total_transactions", Kind: KindInt},
			{Name: "expense_transactions", Kind: KindInt},
			{Name: "income_transactions", Kind: KindInt},
			{Name: "category_breakdown", Kind: KindJSON},
			{Name: "monthly_trend", Kind: KindJSON},
		},
	},
	TypeMoneyAgeConfig: {
		Type:  TypeMoneyAgeConfig,
		Table: "money_age_configs",
		Fields: []Field{
			{Name: "book_id", Kind: KindID, Ref: TypeBook, Required: true},
			{Name: "consumption_strategy", Kind: KindString},
			{Name: "health_threshold", Kind: KindInt},
			{Name: "warning_threshold", Kind: KindInt},
			{Name: "enable_daily_snapshot", Kind: KindBool},
			{Name: "enable_weekly_snapshot", Kind: KindBool},
			{Name: "enable_monthly_snapshot", Kind: KindBool},
			{Name: "enable_notifications", Kind: KindBool},
			{Name: "notify_on_warning", Kind: KindBool},
			{Name: "notify_on_danger", Kind: KindBool},
		},
	},
	TypeGeoFence: {
		Type:  TypeGeoFence,
		Table: "geo_fences",
		Fields: []Field{
			{Name: "name", Kind: KindString},
			{Name: "center_latitude", Kind: KindDecimal},
			{Name: "center_longitude", Kind: KindDecimal},
			{Name: "radius_meters", Kind: KindFloat},
			{Name: "place_name", Kind: KindString},
			{Name: "action", Kind: KindInt},
			{Name: "linked_category_id", Kind: KindID, Ref: TypeCategory},
			{Name: "linked_vault_id", Kind: KindID},
			{Name: "budget_limit", Kind: KindDecimal},
			{Name: "is_enabled", Kind: KindBool},
		},
	},
	TypeFrequentLocation: {
		Type:  TypeFrequentLocation,
		Table: "frequent_locations",
		Fields: []Field{
			{Name: "latitude", Kind: KindDecimal},
			{Name: "longitude", Kind: KindDecimal},
			{Name: "place_name", Kind: KindString},
			{Name: "address", Kind: KindString},
			{Name: "city", Kind: KindString},
			{Name: "district", Kind: KindString},
			{Name: "location_type", Kind: KindInt},
			{Name: "poi_id", Kind: KindString},
			{Name: "visit_count", Kind: KindInt},
			{Name: "total_spent", Kind: KindDecimal},
			{Name: "default_category_id", Kind: KindID, Ref: TypeCategory},
			{Name: "default_vault_id", Kind: KindID},
			{Name: "last_visit_at", Kind: KindTimestamp},
		},
	},
	TypeUserHomeLocation: {
		Type:  TypeUserHomeLocation,
		Table: "user_home_locations",
		Fields: []Field{
			{Name: "location_role", Kind: KindInt},
			{Name: "name", Kind: KindString},
			{Name: "latitude", Kind: KindDecimal},
			{Name: "longitude", Kind: KindDecimal},
			{Name: "city", Kind: KindString},
			{Name: "radius_meters", Kind: KindFloat},
			{Name: "is_primary", Kind: KindBool},
			{Name: "is_enabled", Kind: KindBool},
		},
	},
}

// Lookup returns the Spec for the given entity type tag.
func Lookup(entityType string) (Spec, bool) {
	s, ok := registry[entityType]
	return s, ok
}

// ApplyOrder returns the fixed dependency order of all entity types.
// The returned slice must not be modified.
func ApplyOrder() []string {
	return applyOrder
}

// Types returns all registered entity type tags in apply order.
func Types() []string {
	return applyOrder
}
