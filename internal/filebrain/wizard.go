package filebrain

import "context"

// FetchWizardStatus retrieves the persisted setup progress.
func (c *Client) FetchWizardStatus(ctx context.Context) (WizardStatus, error) {
	var payload WizardStatus
	if err := c.get(ctx, "/wizard/status", &payload); err != nil {
		return WizardStatus{}, err
	}
	return payload, nil
}

// CheckDocker reports whether a container runtime is installed and reachable.
func (c *Client) CheckDocker(ctx context.Context) (DockerCheck, error) {
	var payload DockerCheck
	if err := c.get(ctx, "/wizard/docker-check", &payload); err != nil {
		return DockerCheck{}, err
	}
	return payload, nil
}

// CheckImages reports whether every service image is present locally.
func (c *Client) CheckImages(ctx context.Context) (ImagesCheck, error) {
	var payload ImagesCheck
	if err := c.get(ctx, "/wizard/docker-images-check", &payload); err != nil {
		return ImagesCheck{}, err
	}
	return payload, nil
}

// StartServices asks the backend to start the service containers.
func (c *Client) StartServices(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/wizard/docker-start")
}

// FetchDockerStatus reports container state and health.
func (c *Client) FetchDockerStatus(ctx context.Context) (DockerStatus, error) {
	var payload DockerStatus
	if err := c.get(ctx, "/wizard/docker-status", &payload); err != nil {
		return DockerStatus{}, err
	}
	return payload, nil
}

// FetchModelStatus reports whether the embedding model is already present.
func (c *Client) FetchModelStatus(ctx context.Context) (ModelStatus, error) {
	var payload ModelStatus
	if err := c.get(ctx, "/wizard/model-status", &payload); err != nil {
		return ModelStatus{}, err
	}
	return payload, nil
}

// CreateCollection asks the backend to create the search collection.
func (c *Client) CreateCollection(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/wizard/collection-create")
}

// FetchCollectionStatus reports whether the search collection exists and is ready.
func (c *Client) FetchCollectionStatus(ctx context.Context) (CollectionStatus, error) {
	var payload CollectionStatus
	if err := c.get(ctx, "/wizard/collection-status", &payload); err != nil {
		return CollectionStatus{}, err
	}
	return payload, nil
}

// RestartSearchEngine restarts the search engine container.
func (c *Client) RestartSearchEngine(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/wizard/restart-typesense")
}

// CompleteWizard persists wizard_completed on the backend.
func (c *Client) CompleteWizard(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/wizard/complete")
}

// ResetWizard clears the persisted setup progress.
func (c *Client) ResetWizard(ctx context.Context) (ActionResponse, error) {
	return c.action(ctx, "/wizard/reset")
}
