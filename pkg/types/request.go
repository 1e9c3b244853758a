package types

// ClusterCreateInput is the payload of k8s.createCluster
type ClusterCreateInput struct {
	Name     string `json:"name" validate:"required,min=1,max=100,clustername"`
	Location string `json:"location" validate:"required,min=1,max=50"`
}

// ClusterUpdateInput is the payload of k8s.updateCluster.
// At least one of Name or Location must be set.
type ClusterUpdateInput struct {
	ID       int64   `json:"id" validate:"required,gt=0"`
	Name     *string `json:"name,omitempty" validate:"omitnil,min=1,max=100,clustername"`
	Location *string `json:"location,omitempty" validate:"omitnil,min=1,max=50"`
}

// ClusterGetInput is the payload of k8s.getCluster
type ClusterGetInput struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// ClusterDeleteInput is the payload of k8s.deleteCluster
type ClusterDeleteInput struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// StripeSessionInput is the payload of stripe.createSession
type StripeSessionInput struct {
	PlanID string `json:"planId" validate:"required,startswith=price_"`
}

// UserNameUpdateInput is the payload of customer.updateUserName
type UserNameUpdateInput struct {
	Name   string `json:"name" validate:"required,min=1,max=100"`
	UserID string `json:"userId" validate:"required,uuid"`
}

// CustomerInput is the payload of customer.insertCustomer and customer.queryCustomer
type CustomerInput struct {
	UserID string `json:"userId" validate:"required,uuid"`
}
