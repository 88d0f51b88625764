// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

// ComputeHash returns the hex-encoded SHA256 of the JSON encoding of v.
// encoding/json sorts map keys, so equal values always hash alike.
func ComputeHash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// DesiredHash hashes a synthesized manifest. Server-populated metadata, owner
// links and the hash annotation itself are excluded. Container images of a
// Deployment are excluded as well: a new build is a rollout, not drift.
func DesiredHash(obj client.Object) (string, error) {
	c, ok := obj.DeepCopyObject().(client.Object)
	if !ok {
		return "", fmt.Errorf("%T is not a client.Object", obj)
	}
	c.SetOwnerReferences(nil)
	c.SetResourceVersion("")
	c.SetUID("")
	c.SetGeneration(0)
	c.SetManagedFields(nil)
	c.SetCreationTimestamp(metav1.Time{})

	if annotations := c.GetAnnotations(); len(annotations) > 0 {
		trimmed := make(map[string]string, len(annotations))
		for k, v := range annotations {
			if k == kapsav1alpha1.AnnotationDesiredHash || k == kapsav1alpha1.AnnotationOwnerUID {
				continue
			}
			trimmed[k] = v
		}
		c.SetAnnotations(trimmed)
	}

	if d, ok := c.(*appsv1.Deployment); ok {
		for i := range d.Spec.Template.Spec.Containers {
			d.Spec.Template.Spec.Containers[i].Image = ""
		}
	}
	return ComputeHash(c)
}

// HashChanged reports whether a recorded hash differs from the current one.
// An empty recorded hash means the object predates hashing and counts as changed.
func HashChanged(recorded, current string) bool {
	return recorded == "" || recorded != current
}

// stampHash records the desired hash on obj.
func stampHash(obj client.Object) (string, error) {
	hash, err := DesiredHash(obj)
	if err != nil {
		return "", err
	}
	annotations := obj.GetAnnotations()
	if annotations == nil {
		annotations = map[string]string{}
	}
	annotations[kapsav1alpha1.AnnotationDesiredHash] = hash
	obj.SetAnnotations(annotations)
	return hash, nil
}
